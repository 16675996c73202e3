package model

import "time"

type User struct {
	ID            string `gorm:"primaryKey" bson:"_id" json:"id"`
	Name          string `gorm:"not null" bson:"name" json:"name"`
	Email         string `gorm:"uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash  string `gorm:"not null" bson:"password" json:"-"`
	ContactNumber string `gorm:"not null" bson:"contact_number" json:"contactNumber"`
	Verified      bool   `gorm:"default:false" bson:"is_verified" json:"isVerified"`

	// A pending code always travels together with its expiry
	VerificationCode          *string    `bson:"verification_code,omitempty" json:"-"`
	VerificationCodeExpiresAt *time.Time `bson:"verification_code_expires_at,omitempty" json:"-"`

	ResetCode           *string    `bson:"reset_code,omitempty" json:"-"`
	ResetCodeExpiresAt  *time.Time `bson:"reset_code_expires_at,omitempty" json:"-"`
	ResetToken          *string    `gorm:"index" bson:"reset_token,omitempty" json:"-"`
	ResetTokenExpiresAt *time.Time `bson:"reset_token_expires_at,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// PublicUser is the only shape of a user that leaves the API
type PublicUser struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contactNumber"`
	Verified      bool   `json:"isVerified"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		ContactNumber: u.ContactNumber,
		Verified:      u.Verified,
	}
}

// Reporter is the owner summary attached to listed items
type Reporter struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contactNumber"`
}

func (u *User) Reporter() *Reporter {
	return &Reporter{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		ContactNumber: u.ContactNumber,
	}
}

// HasPendingVerification reports whether the user still waits for an
// email verification code
func (u *User) HasPendingVerification() bool {
	return !u.Verified && u.VerificationCode != nil && u.VerificationCodeExpiresAt != nil
}
