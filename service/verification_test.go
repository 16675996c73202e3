package service

import (
	"bitwise74/campus-finder/model"
	"bitwise74/campus-finder/store"
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliceScenario(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	res := e.register(t, "Alice", "alice@x.com")
	require.Len(t, res.Code, 6)
	assert.False(t, res.MailFailed)
	assert.False(t, res.User.Verified)
	assert.Equal(t, res.Code, e.mailer.last().code)

	// Stored hash is never the password itself
	assert.NotContains(t, res.User.PasswordHash, "Secr3tPass")

	u, err := e.creds.Authenticate(ctx, "alice@x.com", "Secr3tPass")
	assert.ErrorIs(t, err, ErrNotVerified)
	require.NotNil(t, u)
	assert.Equal(t, "alice@x.com", u.Email)

	_, err = e.creds.Authenticate(ctx, "alice@x.com", "WrongPass1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	wrong := "000000"
	if res.Code == wrong {
		wrong = "111111"
	}
	_, err = e.verif.Verify(ctx, "alice@x.com", wrong)
	assert.ErrorIs(t, err, ErrInvalidCode)

	u, err = e.verif.Verify(ctx, "alice@x.com", res.Code)
	require.NoError(t, err)
	assert.True(t, u.Verified)
	assert.Nil(t, u.VerificationCode)
	assert.Nil(t, u.VerificationCodeExpiresAt)

	_, err = e.verif.Verify(ctx, "alice@x.com", res.Code)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	u, err = e.creds.Authenticate(ctx, "alice@x.com", "Secr3tPass")
	require.NoError(t, err)
	assert.True(t, u.Verified)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e := newTestEnv(t, nil)
	e.register(t, "Alice", "alice@x.com")

	_, err := e.verif.Register(context.Background(), RegisterInput{
		Name: "Other", Email: "alice@x.com", Password: "Secr3tPass", ContactNumber: "03001234567",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterMailFailure(t *testing.T) {
	e := newTestEnv(t, nil)
	e.mailer.fail = true

	res := e.register(t, "Alice", "alice@x.com")
	assert.True(t, res.MailFailed)
	assert.NotEmpty(t, res.Code)

	_, err := e.creds.FindByEmail(context.Background(), "alice@x.com")
	assert.NoError(t, err)
}

func TestVerifyExpiryBoundary(t *testing.T) {
	ctx := context.Background()

	e := newTestEnv(t, nil)
	res := e.register(t, "Alice", "alice@x.com")
	e.clock.advance(CodeTTL - time.Second)
	_, err := e.verif.Verify(ctx, "alice@x.com", res.Code)
	assert.NoError(t, err)

	res = e.register(t, "Bob", "bob@x.com")
	e.clock.advance(CodeTTL)
	_, err = e.verif.Verify(ctx, "bob@x.com", res.Code)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestVerifyUnknownEmail(t *testing.T) {
	e := newTestEnv(t, nil)

	_, err := e.verif.Verify(context.Background(), "ghost@x.com", "123456")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResendInvalidatesOldCode(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	first := e.register(t, "Alice", "alice@x.com")

	var second *ResendResult
	for {
		r, err := e.verif.Resend(ctx, "alice@x.com")
		require.NoError(t, err)
		if r.Code != first.Code {
			second = r
			break
		}
	}
	assert.Equal(t, second.Code, e.mailer.last().code)

	_, err := e.verif.Verify(ctx, "alice@x.com", first.Code)
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = e.verif.Verify(ctx, "alice@x.com", second.Code)
	assert.NoError(t, err)

	_, err = e.verif.Resend(ctx, "alice@x.com")
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	_, err = e.verif.Resend(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResendMailFailure(t *testing.T) {
	e := newTestEnv(t, nil)
	e.register(t, "Alice", "alice@x.com")
	e.mailer.fail = true

	r, err := e.verif.Resend(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.True(t, r.MailFailed)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	e := newTestEnv(t, nil)

	res, err := e.verif.ForgotPassword(context.Background(), "ghost@x.com")
	require.NoError(t, err)
	assert.Empty(t, res.Code)
	assert.Empty(t, res.Token)
	assert.Equal(t, 0, e.mailer.count())
}

func TestForgotPasswordMailFailureIsSilent(t *testing.T) {
	e := newTestEnv(t, nil)
	e.register(t, "Alice", "alice@x.com")
	e.mailer.fail = true

	res, err := e.verif.ForgotPassword(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.Len(t, res.Code, 6)
}

func TestResetPasswordWithCode(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	e.register(t, "Alice", "alice@x.com")

	fr, err := e.verif.ForgotPassword(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Len(t, fr.Token, 32)

	mail := e.mailer.last()
	assert.Equal(t, fr.Code, mail.code)
	link, err := url.Parse(mail.link)
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", link.Path)
	assert.Equal(t, fr.Token, link.Query().Get("token"))
	assert.Equal(t, "alice@x.com", link.Query().Get("email"))

	err = e.verif.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Code: "nope", Password: "N3wPassword"})
	assert.ErrorIs(t, err, ErrInvalidResetCode)

	require.NoError(t, e.verif.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Code: fr.Code, Password: "N3wPassword"}))

	u, err := e.creds.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Nil(t, u.ResetCode)
	assert.Nil(t, u.ResetToken)
	assert.True(t, e.creds.VerifyPassword(u, "N3wPassword"))
	assert.False(t, e.creds.VerifyPassword(u, "Secr3tPass"))

	// Reset state is gone, the same code can't be used twice
	err = e.verif.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Code: fr.Code, Password: "An0therPass"})
	assert.ErrorIs(t, err, ErrInvalidResetCode)
}

func TestResetPasswordWithToken(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	e.register(t, "Alice", "alice@x.com")

	fr, err := e.verif.ForgotPassword(ctx, "alice@x.com")
	require.NoError(t, err)

	// The code is dead after 15 minutes but the link still works
	e.clock.advance(30 * time.Minute)

	err = e.verif.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Code: fr.Code, Password: "N3wPassword"})
	assert.ErrorIs(t, err, ErrResetCodeExpired)

	bad := "x" + fr.Token[1:]
	if bad == fr.Token {
		bad = "y" + fr.Token[1:]
	}
	err = e.verif.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Token: bad, Password: "N3wPassword"})
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	require.NoError(t, e.verif.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Token: fr.Token, Password: "N3wPassword"}))
}

func TestResetPasswordTokenExpired(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	e.register(t, "Alice", "alice@x.com")

	fr, err := e.verif.ForgotPassword(ctx, "alice@x.com")
	require.NoError(t, err)

	e.clock.advance(ResetTokenTTL)

	err = e.verif.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Token: fr.Token, Password: "N3wPassword"})
	assert.ErrorIs(t, err, ErrResetTokenExpired)
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	err := e.verif.ResetPassword(ctx, ResetInput{Email: "ghost@x.com", Code: "123456", Password: "N3wPassword"})
	assert.ErrorIs(t, err, ErrInvalidResetCode)

	err = e.verif.ResetPassword(ctx, ResetInput{Email: "ghost@x.com", Token: "abc", Password: "N3wPassword"})
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestVerifyAttemptLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := newTestEnv(t, NewRedisAttemptLimiter(rdb, 3, 15*time.Minute))
	ctx := context.Background()

	res := e.register(t, "Alice", "alice@x.com")
	wrong := "000000"
	if res.Code == wrong {
		wrong = "111111"
	}

	for rangeIdx := 0; rangeIdx < 3; rangeIdx++ {
		_, err := e.verif.Verify(ctx, "alice@x.com", wrong)
		assert.ErrorIs(t, err, ErrInvalidCode)
	}

	_, err := e.verif.Verify(ctx, "alice@x.com", res.Code)
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	mr.FastForward(15 * time.Minute)

	_, err = e.verif.Verify(ctx, "alice@x.com", res.Code)
	assert.NoError(t, err)
	assert.False(t, mr.Exists("otp_attempts:verify:alice@x.com"))
}

func TestRedisAttemptLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	l := NewRedisAttemptLimiter(rdb, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.Check(ctx, PurposeReset, "a@x.com"))
	require.NoError(t, l.Fail(ctx, PurposeReset, "a@x.com"))
	require.NoError(t, l.Fail(ctx, PurposeReset, "a@x.com"))
	assert.ErrorIs(t, l.Check(ctx, PurposeReset, "a@x.com"), ErrTooManyAttempts)

	// Purposes are counted separately
	assert.NoError(t, l.Check(ctx, PurposeVerify, "a@x.com"))

	assert.Equal(t, time.Minute, mr.TTL("otp_attempts:reset:a@x.com"))

	require.NoError(t, l.Reset(ctx, PurposeReset, "a@x.com"))
	assert.NoError(t, l.Check(ctx, PurposeReset, "a@x.com"))
}

func TestAttemptLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := newTestEnv(t, NewRedisAttemptLimiter(rdb, 3, time.Minute))
	res := e.register(t, "Alice", "alice@x.com")

	mr.Close()

	_, err := e.verif.Verify(context.Background(), "alice@x.com", res.Code)
	assert.NoError(t, err)
}

// pausingStore calls between once, right after the next user lookup by
// email and before the caller writes anything back
type pausingStore struct {
	*store.GormStore
	between func()
}

func (s *pausingStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.GormStore.UserByEmail(ctx, email)
	if hook := s.between; hook != nil {
		s.between = nil
		hook()
	}

	return u, err
}

func TestInterleavedRequestsKeepEachOthersFields(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, e *testEnv) (first func(v *Verification) error, between func())
		check func(t *testing.T, u *model.User)
	}{
		{
			name: "verify during forgot password",
			setup: func(t *testing.T, e *testEnv) (func(*Verification) error, func()) {
				reg := e.register(t, "Alice", "alice@x.com")

				first := func(v *Verification) error {
					_, err := v.ForgotPassword(ctx, "alice@x.com")
					return err
				}
				between := func() {
					_, err := e.verif.Verify(ctx, "alice@x.com", reg.Code)
					require.NoError(t, err)
				}

				return first, between
			},
			check: func(t *testing.T, u *model.User) {
				assert.True(t, u.Verified)
				assert.Nil(t, u.VerificationCode)
				assert.NotNil(t, u.ResetCode)
				assert.NotNil(t, u.ResetToken)
			},
		},
		{
			name: "verify during password reset",
			setup: func(t *testing.T, e *testEnv) (func(*Verification) error, func()) {
				reg := e.register(t, "Alice", "alice@x.com")
				forgot, err := e.verif.ForgotPassword(ctx, "alice@x.com")
				require.NoError(t, err)

				first := func(v *Verification) error {
					return v.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Code: forgot.Code, Password: "N3wSecret1"})
				}
				between := func() {
					_, err := e.verif.Verify(ctx, "alice@x.com", reg.Code)
					require.NoError(t, err)
				}

				return first, between
			},
			check: func(t *testing.T, u *model.User) {
				assert.True(t, u.Verified)
				assert.Nil(t, u.VerificationCode)
				assert.Nil(t, u.ResetCode)
				assert.Nil(t, u.ResetToken)
			},
		},
		{
			name: "forgot password during resend",
			setup: func(t *testing.T, e *testEnv) (func(*Verification) error, func()) {
				e.register(t, "Alice", "alice@x.com")

				first := func(v *Verification) error {
					_, err := v.Resend(ctx, "alice@x.com")
					return err
				}
				between := func() {
					_, err := e.verif.ForgotPassword(ctx, "alice@x.com")
					require.NoError(t, err)
				}

				return first, between
			},
			check: func(t *testing.T, u *model.User) {
				assert.False(t, u.Verified)
				assert.NotNil(t, u.VerificationCode)
				assert.NotNil(t, u.ResetCode)
				assert.NotNil(t, u.ResetToken)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, nil)
			first, between := tt.setup(t, e)

			paused := &pausingStore{GormStore: e.store, between: between}
			v := NewVerification(NewCredentials(paused, fastArgon()), e.mailer, nil,
				WithNow(e.clock.now), WithResetURL("https://finder.test/reset-password"))

			require.NoError(t, first(v))
			require.Nil(t, paused.between)

			u, err := e.store.UserByEmail(ctx, "alice@x.com")
			require.NoError(t, err)
			tt.check(t, u)
		})
	}
}
