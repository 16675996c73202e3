package validators

import (
	"errors"
	"regexp"
)

var (
	ErrContactEmpty   = errors.New("Please provide your contact number")
	ErrContactInvalid = errors.New("Please enter a valid contact number")
)

// Allows local and international formats like +92 (300) 123-4567
var phoneRe = regexp.MustCompile(`^[+]?[(]?[0-9]{1,4}[)]?[-\s.]?[0-9]{1,3}[-\s.]?[0-9]{1,4}[-\s.]?[0-9]{1,4}$`)

func ContactNumberValidator(n string) error {
	if n == "" {
		return ErrContactEmpty
	}

	if !phoneRe.MatchString(n) {
		return ErrContactInvalid
	}

	return nil
}
