package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// SessionTTL is how long an issued session token stays valid
const SessionTTL = time.Hour * 24 * 7

var (
	// ErrInvalidSession is the only error callers of Verify ever see. The
	// actual reason (expired, bad signature, garbage) is only logged
	ErrInvalidSession = errors.New("invalid session token")
	ErrEmptySecret    = errors.New("session secret can't be empty")
)

type SessionClaims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject the token was issued for
func (s *SessionClaims) UserID() string {
	return s.Subject
}

type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type CodecOption func(*SessionCodec)

// WithClock replaces the time source used to issue and verify tokens
func WithClock(now func() time.Time) CodecOption {
	return func(c *SessionCodec) {
		c.now = now
	}
}

// NewSessionCodec builds a codec signing with HS256. Whitespace is removed from
// the secret because long secrets often get wrapped over multiple lines
// when pasted into env files
func NewSessionCodec(secret string, ttl time.Duration, opts ...CodecOption) (*SessionCodec, error) {
	secret = strings.Join(strings.Fields(secret), "")
	if secret == "" {
		return nil, ErrEmptySecret
	}

	if ttl <= 0 {
		ttl = SessionTTL
	}

	c := &SessionCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}

	for _, o := range opts {
		o(c)
	}

	return c, nil
}

// TTL returns the lifetime of issued tokens
func (c *SessionCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a new token for userID
func (c *SessionCodec) Issue(userID string) (token string, expiresAt time.Time, err error) {
	if userID == "" {
		return "", time.Time{}, errors.New("no user ID provided")
	}

	now := c.now()
	expiresAt = now.Add(c.ttl)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	token, err = t.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// Verify checks the signature and expiry of token. A token is accepted
// strictly before its exp claim
func (c *SessionCodec) Verify(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	var claims SessionClaims

	t, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		zap.L().Debug("Rejected session token", zap.Error(err))
		return nil, ErrInvalidSession
	}

	if !t.Valid || claims.Subject == "" {
		zap.L().Debug("Rejected session token without subject")
		return nil, ErrInvalidSession
	}

	return &claims, nil
}
