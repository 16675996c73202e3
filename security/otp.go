package security

import (
	"crypto/rand"
	"math/big"
	"strconv"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idCharset    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	otpMin = 100000
	otpMax = 999999

	// ResetTokenLength is the length of the link tokens sent with reset mails
	ResetTokenLength = 32
	idLength         = 16
)

// GenerateOTP returns a six digit code drawn uniformly from [100000, 999999]
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// GenerateRandomToken returns an alphanumeric string of the given length,
// every character picked uniformly
func GenerateRandomToken(length int) (string, error) {
	return gonanoid.Generate(alphanumeric, length)
}

// NewID generates a record ID
func NewID() (string, error) {
	return gonanoid.Generate(idCharset, idLength)
}
