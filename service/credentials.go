package service

import (
	"bitwise74/campus-finder/model"
	"bitwise74/campus-finder/security"
	"bitwise74/campus-finder/store"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type PendingCode = store.PendingCode

type NewUser struct {
	Name          string
	Email         string
	Password      string
	ContactNumber string
	Verification  PendingCode
}

// UserUpdate lists the fields to change. Nil pointers are left alone
type UserUpdate struct {
	Name          *string
	ContactNumber *string
	// Plain text, hashed before it's stored
	Password *string
	Verified *bool

	Verification      *PendingCode
	ClearVerification bool

	ResetCode  *PendingCode
	ResetToken *PendingCode
	ClearReset bool
}

// Credentials owns user records and everything password related
type Credentials struct {
	users store.UserStore
	argon *security.ArgonHash
}

func NewCredentials(users store.UserStore, argon *security.ArgonHash) *Credentials {
	return &Credentials{users: users, argon: argon}
}

func (c *Credentials) Create(ctx context.Context, nu NewUser) (*model.User, error) {
	hash, err := c.argon.GenerateFromPassword(nu.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := security.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}

	u := &model.User{
		ID:                        id,
		Name:                      nu.Name,
		Email:                     nu.Email,
		PasswordHash:              hash,
		ContactNumber:             nu.ContactNumber,
		Verified:                  false,
		VerificationCode:          &nu.Verification.Value,
		VerificationCodeExpiresAt: &nu.Verification.ExpiresAt,
	}

	if err := c.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}

		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (c *Credentials) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := c.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return u, nil
}

func (c *Credentials) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, err := c.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return u, nil
}

// VerifyPassword reports whether raw matches the stored hash of u
func (c *Credentials) VerifyPassword(u *model.User, raw string) bool {
	ok, err := c.argon.VerifyPasswd(raw, u.PasswordHash)
	if err != nil {
		zap.L().Warn("Stored password hash can't be checked", zap.Error(err), zap.String("userID", u.ID))
		return false
	}

	return ok
}

// Authenticate checks the password first and only then the verification
// state, so unverified accounts don't leak to someone without the password.
// On ErrNotVerified the user is returned as well
func (c *Credentials) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := c.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if !c.VerifyPassword(u, password) {
		return nil, ErrInvalidCredentials
	}

	if !u.Verified {
		return u, ErrNotVerified
	}

	return u, nil
}

// Update persists only the fields named by upd and applies the same
// changes to u
func (c *Credentials) Update(ctx context.Context, u *model.User, upd UserUpdate) (*model.User, error) {
	p := store.UserPatch{
		Name:              upd.Name,
		ContactNumber:     upd.ContactNumber,
		Verified:          upd.Verified,
		Verification:      upd.Verification,
		ClearVerification: upd.ClearVerification,
		ResetCode:         upd.ResetCode,
		ResetToken:        upd.ResetToken,
		ClearReset:        upd.ClearReset,
	}

	if upd.Password != nil {
		hash, err := c.argon.GenerateFromPassword(*upd.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		p.PasswordHash = &hash
	}

	if err := c.users.UpdateUser(ctx, u.ID, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	p.Apply(u)
	return u, nil
}
