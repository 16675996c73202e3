package service

import (
	"bitwise74/campus-finder/model"
	"bitwise74/campus-finder/security"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	CodeTTL       = 15 * time.Minute
	ResetTokenTTL = time.Hour
)

type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	ContactNumber string
}

type RegisterResult struct {
	User *model.User
	Code string
	// Set when the mail with the code couldn't be delivered. The account
	// exists anyway and the code can be resent
	MailFailed bool
}

type ResendResult struct {
	User       *model.User
	Code       string
	MailFailed bool
}

// ForgotResult is empty when the email doesn't belong to any account
type ForgotResult struct {
	Code  string
	Token string
}

// ResetInput carries either the mailed code or the link token
type ResetInput struct {
	Email    string
	Code     string
	Token    string
	Password string
}

type VerificationOption func(*Verification)

func WithNow(now func() time.Time) VerificationOption {
	return func(v *Verification) { v.now = now }
}

// WithResetURL sets the page the reset link in mails points to
func WithResetURL(u string) VerificationOption {
	return func(v *Verification) { v.resetURL = u }
}

// Verification drives the account lifecycle: unverified after registration,
// verified after the code is confirmed, and the password reset flow on top
type Verification struct {
	creds    *Credentials
	mailer   Mailer
	attempts AttemptLimiter
	now      func() time.Time
	resetURL string
}

func NewVerification(creds *Credentials, mailer Mailer, attempts AttemptLimiter, opts ...VerificationOption) *Verification {
	v := &Verification{
		creds:    creds,
		mailer:   mailer,
		attempts: attempts,
		now:      func() time.Time { return time.Now().UTC() },
		resetURL: "http://localhost:8080/reset-password",
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.attempts == nil {
		v.attempts = NoopAttemptLimiter{}
	}

	return v
}

func (v *Verification) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	code, err := security.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	u, err := v.creds.Create(ctx, NewUser{
		Name:          in.Name,
		Email:         in.Email,
		Password:      in.Password,
		ContactNumber: in.ContactNumber,
		Verification:  PendingCode{Value: code, ExpiresAt: v.now().Add(CodeTTL)},
	})
	if err != nil {
		return nil, err
	}

	res := &RegisterResult{User: u, Code: code}

	if err := v.mailer.SendVerification(ctx, u.Email, u.Name, code); err != nil {
		zap.L().Warn("Failed to send verification mail", zap.Error(err), zap.String("userID", u.ID))
		res.MailFailed = true
	}

	return res, nil
}

// Verify confirms the pending code of an account. The code is compared
// before the expiry is looked at
func (v *Verification) Verify(ctx context.Context, email, code string) (*model.User, error) {
	u, err := v.creds.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !u.HasPendingVerification() {
		return nil, ErrAlreadyVerified
	}

	if err := v.checkAttempts(ctx, PurposeVerify, email); err != nil {
		return nil, err
	}

	if *u.VerificationCode != code {
		v.failAttempt(ctx, PurposeVerify, email)
		return nil, ErrInvalidCode
	}

	if !v.now().Before(*u.VerificationCodeExpiresAt) {
		return nil, ErrCodeExpired
	}

	verified := true
	u, err = v.creds.Update(ctx, u, UserUpdate{Verified: &verified, ClearVerification: true})
	if err != nil {
		return nil, err
	}

	v.resetAttempts(ctx, PurposeVerify, email)
	return u, nil
}

// Resend replaces the pending code, the previous one stops working at once
func (v *Verification) Resend(ctx context.Context, email string) (*ResendResult, error) {
	u, err := v.creds.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if u.Verified {
		return nil, ErrAlreadyVerified
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	u, err = v.creds.Update(ctx, u, UserUpdate{
		Verification: &PendingCode{Value: code, ExpiresAt: v.now().Add(CodeTTL)},
	})
	if err != nil {
		return nil, err
	}

	res := &ResendResult{User: u, Code: code}

	if err := v.mailer.SendVerification(ctx, u.Email, u.Name, code); err != nil {
		zap.L().Warn("Failed to resend verification mail", zap.Error(err), zap.String("userID", u.ID))
		res.MailFailed = true
	}

	return res, nil
}

// ForgotPassword starts a reset. It behaves the same whether or not the
// account exists, only store failures are returned
func (v *Verification) ForgotPassword(ctx context.Context, email string) (*ForgotResult, error) {
	u, err := v.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			zap.L().Debug("Password reset requested for unknown email")
			return &ForgotResult{}, nil
		}

		return nil, err
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	token, err := security.GenerateRandomToken(security.ResetTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	now := v.now()
	u, err = v.creds.Update(ctx, u, UserUpdate{
		ResetCode:  &PendingCode{Value: code, ExpiresAt: now.Add(CodeTTL)},
		ResetToken: &PendingCode{Value: token, ExpiresAt: now.Add(ResetTokenTTL)},
	})
	if err != nil {
		return nil, err
	}

	if err := v.mailer.SendPasswordReset(ctx, u.Email, u.Name, code, v.resetLink(u.Email, token)); err != nil {
		zap.L().Warn("Failed to send password reset mail", zap.Error(err), zap.String("userID", u.ID))
	}

	return &ForgotResult{Code: code, Token: token}, nil
}

func (v *Verification) resetLink(email, token string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)

	return v.resetURL + "?" + q.Encode()
}

// ResetPassword sets a new password when the code or the link token
// matches and is still valid. An unknown email fails like a wrong secret
func (v *Verification) ResetPassword(ctx context.Context, in ResetInput) error {
	useToken := in.Code == "" && in.Token != ""

	errInvalid := ErrInvalidResetCode
	if useToken {
		errInvalid = ErrInvalidResetToken
	}

	u, err := v.creds.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return errInvalid
		}

		return err
	}

	if err := v.checkAttempts(ctx, PurposeReset, in.Email); err != nil {
		return err
	}

	now := v.now()

	if useToken {
		if u.ResetToken == nil || subtle.ConstantTimeCompare([]byte(*u.ResetToken), []byte(in.Token)) != 1 {
			v.failAttempt(ctx, PurposeReset, in.Email)
			return ErrInvalidResetToken
		}

		if !now.Before(*u.ResetTokenExpiresAt) {
			return ErrResetTokenExpired
		}
	} else {
		if u.ResetCode == nil || *u.ResetCode != in.Code {
			v.failAttempt(ctx, PurposeReset, in.Email)
			return ErrInvalidResetCode
		}

		if !now.Before(*u.ResetCodeExpiresAt) {
			return ErrResetCodeExpired
		}
	}

	if _, err := v.creds.Update(ctx, u, UserUpdate{Password: &in.Password, ClearReset: true}); err != nil {
		return err
	}

	v.resetAttempts(ctx, PurposeReset, in.Email)
	return nil
}

// Limiter failures other than the limit itself are logged and ignored
func (v *Verification) checkAttempts(ctx context.Context, purpose, email string) error {
	err := v.attempts.Check(ctx, purpose, email)
	if err == nil || errors.Is(err, ErrTooManyAttempts) {
		return err
	}

	zap.L().Warn("Attempt limiter unavailable", zap.Error(err), zap.String("purpose", purpose))
	return nil
}

func (v *Verification) failAttempt(ctx context.Context, purpose, email string) {
	if err := v.attempts.Fail(ctx, purpose, email); err != nil {
		zap.L().Warn("Failed to record attempt", zap.Error(err), zap.String("purpose", purpose))
	}
}

func (v *Verification) resetAttempts(ctx context.Context, purpose, email string) {
	if err := v.attempts.Reset(ctx, purpose, email); err != nil {
		zap.L().Warn("Failed to reset attempts", zap.Error(err), zap.String("purpose", purpose))
	}
}
