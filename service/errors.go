// Package service holds the account and item logic shared by the HTTP
// handlers. Errors returned from here are sentinel values whose text is safe
// to show to the user
package service

import "errors"

var (
	ErrUserNotFound       = errors.New("User not found")
	ErrDuplicateEmail     = errors.New("Email already in use")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrNotVerified        = errors.New("Please verify your email before logging in")

	ErrAlreadyVerified = errors.New("User is already verified")
	ErrInvalidCode     = errors.New("Invalid verification code")
	ErrCodeExpired     = errors.New("Verification code has expired")

	ErrInvalidResetCode  = errors.New("Invalid reset code")
	ErrResetCodeExpired  = errors.New("Reset code has expired")
	ErrInvalidResetToken = errors.New("Invalid reset token")
	ErrResetTokenExpired = errors.New("Reset token has expired")

	ErrTooManyAttempts = errors.New("Too many attempts, please try again later")

	ErrItemNotFound    = errors.New("Item not found")
	ErrNotItemOwner    = errors.New("You are not authorized to modify this item")
	ErrStorageDisabled = errors.New("Image uploads are not available")
)
