package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	PurposeVerify = "verify"
	PurposeReset  = "reset"
)

// AttemptLimiter caps the number of wrong codes that can be submitted for
// one email within a window
type AttemptLimiter interface {
	// Check returns ErrTooManyAttempts once the limit is reached
	Check(ctx context.Context, purpose, email string) error
	Fail(ctx context.Context, purpose, email string) error
	Reset(ctx context.Context, purpose, email string) error
}

// RedisAttemptLimiter is a fixed window counter. The window starts with the
// first failure and the key expires with it
type RedisAttemptLimiter struct {
	rdb    *redis.Client
	max    int64
	window time.Duration
}

func NewRedisAttemptLimiter(rdb *redis.Client, maxAttempts int, window time.Duration) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{rdb: rdb, max: int64(maxAttempts), window: window}
}

func (l *RedisAttemptLimiter) key(purpose, email string) string {
	return "otp_attempts:" + purpose + ":" + email
}

func (l *RedisAttemptLimiter) Check(ctx context.Context, purpose, email string) error {
	n, err := l.rdb.Get(ctx, l.key(purpose, email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to read attempt counter: %w", err)
	}

	if n >= l.max {
		return ErrTooManyAttempts
	}

	return nil
}

func (l *RedisAttemptLimiter) Fail(ctx context.Context, purpose, email string) error {
	key := l.key(purpose, email)

	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment attempt counter: %w", err)
	}

	if n == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("failed to set attempt window: %w", err)
		}
	}

	return nil
}

func (l *RedisAttemptLimiter) Reset(ctx context.Context, purpose, email string) error {
	return l.rdb.Del(ctx, l.key(purpose, email)).Err()
}

// NoopAttemptLimiter never limits. Used when redis is not configured
type NoopAttemptLimiter struct{}

func (NoopAttemptLimiter) Check(context.Context, string, string) error { return nil }
func (NoopAttemptLimiter) Fail(context.Context, string, string) error  { return nil }
func (NoopAttemptLimiter) Reset(context.Context, string, string) error { return nil }
