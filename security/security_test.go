package security

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fastArgon() *ArgonHash {
	a := New()
	a.Memory = 8 * 1024
	a.Iterations = 1
	return a
}

func TestArgonHashAndVerify(t *testing.T) {
	a := fastArgon()

	hash, err := a.GenerateFromPassword("Secr3tPass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=2$"))
	assert.NotContains(t, hash, "Secr3tPass")

	ok, err := a.VerifyPasswd("Secr3tPass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.VerifyPasswd("secr3tpass", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgonSaltIsRandom(t *testing.T) {
	a := fastArgon()

	h1, err := a.GenerateFromPassword("Secr3tPass")
	require.NoError(t, err)
	h2, err := a.GenerateFromPassword("Secr3tPass")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("OldPassw0rd"), bcrypt.MinCost)
	require.NoError(t, err)

	a := fastArgon()

	ok, err := a.VerifyPasswd("OldPassw0rd", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.VerifyPasswd("wrong", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyMalformedHash(t *testing.T) {
	_, err := fastArgon().VerifyPasswd("x", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestGenerateOTP(t *testing.T) {
	for rangeIdx := 0; rangeIdx < 500; rangeIdx++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestGenerateRandomToken(t *testing.T) {
	tok, err := GenerateRandomToken(ResetTokenLength)
	require.NoError(t, err)
	assert.Len(t, tok, ResetTokenLength)

	for _, r := range tok {
		assert.True(t, strings.ContainsRune(alphanumeric, r), "unexpected rune %q", r)
	}

	other, err := GenerateRandomToken(ResetTokenLength)
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestNewID(t *testing.T) {
	id, err := NewID()
	require.NoError(t, err)
	assert.Len(t, id, 16)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestSessionIssueAndVerify(t *testing.T) {
	c, err := NewSessionCodec("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, SessionTTL, c.TTL())

	tok, exp, err := c.Issue("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(SessionTTL), exp, 2*time.Second)

	claims, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
}

func TestSessionExpiryBoundary(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}

	c, err := NewSessionCodec("secret", SessionTTL, WithClock(clk.now))
	require.NoError(t, err)

	tok, exp, err := c.Issue("user-1")
	require.NoError(t, err)

	clk.t = exp.Add(-time.Second)
	_, err = c.Verify(tok)
	assert.NoError(t, err, "one second before expiry must be accepted")

	clk.t = exp
	_, err = c.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidSession, "token must be rejected at exp")

	clk.t = exp.Add(time.Second)
	_, err = c.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionSecretWhitespaceStripped(t *testing.T) {
	wrapped, err := NewSessionCodec("abc\n def\t ghi ", 0)
	require.NoError(t, err)
	flat, err := NewSessionCodec("abcdefghi", 0)
	require.NoError(t, err)

	tok, _, err := wrapped.Issue("u")
	require.NoError(t, err)

	_, err = flat.Verify(tok)
	assert.NoError(t, err)
}

func TestSessionRejects(t *testing.T) {
	c, err := NewSessionCodec("right", 0)
	require.NoError(t, err)
	other, err := NewSessionCodec("wrong", 0)
	require.NoError(t, err)

	tok, _, err := other.Issue("u")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noneTok, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u"})
	noExpTok, err := noExp.SignedString([]byte("right"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", tok},
		{"alg none", noneTok},
		{"missing exp", noExpTok},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestSessionCodecEmptySecret(t *testing.T) {
	_, err := NewSessionCodec(" \n\t", 0)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
