package validators

import "errors"

var (
	ErrPasswordTooShort = errors.New("Password must be at least 8 characters long")
	ErrPasswordWeak     = errors.New("Password must contain at least one uppercase letter, one lowercase letter, and one number")
	ErrPasswordTooLong  = errors.New("Password is too long")
	ErrPasswordEmpty    = errors.New("Please provide a password")
	ErrPasswordMismatch = errors.New("Passwords do not match")
)

func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) < 8 {
		return ErrPasswordTooShort
	}

	if len(p) > 255 {
		return ErrPasswordTooLong
	}

	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}

	if !upper || !lower || !digit {
		return ErrPasswordWeak
	}

	return nil
}

// ConfirmValidator checks the password and its confirmation, then the
// password itself
func ConfirmValidator(p, confirm string) error {
	if p != confirm {
		return ErrPasswordMismatch
	}

	return PasswordValidator(p)
}
