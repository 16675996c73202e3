// Package validators contains validators found throughout the application
// that have been abstracted away from the main code. Error messages are
// meant to be shown to the user as they are
package validators

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmailEmpty   = errors.New("Please provide your email address")
	ErrEmailInvalid = errors.New("Please enter a valid email address")
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func EmailValidator(e string) error {
	if e == "" {
		return ErrEmailEmpty
	}

	if len(e) > 254 || !emailRe.MatchString(e) {
		return ErrEmailInvalid
	}

	return nil
}

// NormalizeEmail is applied to every email before it touches the database
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
