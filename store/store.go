// Package store defines the persistence contract used by the services and
// its implementations on top of gorm (SQLite, PostgreSQL) and MongoDB
package store

import (
	"bitwise74/campus-finder/model"
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type UserStore interface {
	// CreateUser inserts u, returns ErrDuplicate when the email is taken
	CreateUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	// UpdateUser writes only the fields named by p, returns ErrNotFound
	// when no user has the id
	UpdateUser(ctx context.Context, id string, p UserPatch) error
	// ClearExpiredResets removes reset codes and tokens that expired before t
	ClearExpiredResets(ctx context.Context, t time.Time) (int64, error)
}

// PendingCode is a one-time secret together with the moment it stops
// being valid
type PendingCode struct {
	Value     string
	ExpiresAt time.Time
}

// UserPatch lists the user fields to change. Nil pointers are left alone.
// A clear flag drops the pending secret unless a new one is set as well
type UserPatch struct {
	Name          *string
	ContactNumber *string
	PasswordHash  *string
	Verified      *bool

	Verification      *PendingCode
	ClearVerification bool

	ResetCode  *PendingCode
	ResetToken *PendingCode
	ClearReset bool
}

type column struct {
	sql  string
	bson string
}

var (
	colName              = column{"name", "name"}
	colContactNumber     = column{"contact_number", "contact_number"}
	colPasswordHash      = column{"password_hash", "password"}
	colVerified          = column{"verified", "is_verified"}
	colVerificationCode  = column{"verification_code", "verification_code"}
	colVerificationUntil = column{"verification_code_expires_at", "verification_code_expires_at"}
	colResetCode         = column{"reset_code", "reset_code"}
	colResetCodeUntil    = column{"reset_code_expires_at", "reset_code_expires_at"}
	colResetToken        = column{"reset_token", "reset_token"}
	colResetTokenUntil   = column{"reset_token_expires_at", "reset_token_expires_at"}
)

// changes maps every touched column to its new value, nil clears it
func (p UserPatch) changes() map[column]any {
	m := make(map[column]any)

	if p.Name != nil {
		m[colName] = *p.Name
	}
	if p.ContactNumber != nil {
		m[colContactNumber] = *p.ContactNumber
	}
	if p.PasswordHash != nil {
		m[colPasswordHash] = *p.PasswordHash
	}
	if p.Verified != nil {
		m[colVerified] = *p.Verified
	}

	if p.ClearVerification {
		m[colVerificationCode], m[colVerificationUntil] = nil, nil
	}
	if p.Verification != nil {
		m[colVerificationCode], m[colVerificationUntil] = p.Verification.Value, p.Verification.ExpiresAt
	}

	if p.ClearReset {
		m[colResetCode], m[colResetCodeUntil] = nil, nil
		m[colResetToken], m[colResetTokenUntil] = nil, nil
	}
	if p.ResetCode != nil {
		m[colResetCode], m[colResetCodeUntil] = p.ResetCode.Value, p.ResetCode.ExpiresAt
	}
	if p.ResetToken != nil {
		m[colResetToken], m[colResetTokenUntil] = p.ResetToken.Value, p.ResetToken.ExpiresAt
	}

	return m
}

// Apply makes the same changes to an in-memory copy of the user
func (p UserPatch) Apply(u *model.User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.ContactNumber != nil {
		u.ContactNumber = *p.ContactNumber
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Verified != nil {
		u.Verified = *p.Verified
	}

	if p.ClearVerification {
		u.VerificationCode, u.VerificationCodeExpiresAt = nil, nil
	}
	if v := p.Verification; v != nil {
		u.VerificationCode, u.VerificationCodeExpiresAt = &v.Value, &v.ExpiresAt
	}

	if p.ClearReset {
		u.ResetCode, u.ResetCodeExpiresAt = nil, nil
		u.ResetToken, u.ResetTokenExpiresAt = nil, nil
	}
	if r := p.ResetCode; r != nil {
		u.ResetCode, u.ResetCodeExpiresAt = &r.Value, &r.ExpiresAt
	}
	if r := p.ResetToken; r != nil {
		u.ResetToken, u.ResetTokenExpiresAt = &r.Value, &r.ExpiresAt
	}
}

type ItemStore interface {
	CreateItem(ctx context.Context, i *model.Item) error
	ItemByID(ctx context.Context, id string) (*model.Item, error)
	ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error)
	SaveItem(ctx context.Context, i *model.Item) error
	DeleteItem(ctx context.Context, id string) error
}

type Store interface {
	UserStore
	ItemStore
	Close(ctx context.Context) error
}

// pageBounds turns the page and limit of a filter into an offset and a
// sane limit
func pageBounds(f model.ItemFilter) (offset, limit int) {
	limit = f.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	page := max(f.Page, 0)
	return page * limit, limit
}
