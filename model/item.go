// Package model defines database models
package model

import "time"

const (
	ItemTypeLost  = "lost"
	ItemTypeFound = "found"
)

const (
	ItemStatusOpen    = "open"
	ItemStatusClosed  = "closed"
	ItemStatusClaimed = "claimed"
)

var (
	ItemTypes    = []string{ItemTypeLost, ItemTypeFound}
	ItemStatuses = []string{ItemStatusOpen, ItemStatusClosed, ItemStatusClaimed}

	ItemCategories = []string{
		"electronics",
		"documents",
		"accessories",
		"clothing",
		"bag",
		"keys",
		"wallet",
		"id-card",
		"other",
	}
)

type Item struct {
	ID          string    `gorm:"primaryKey" bson:"_id" json:"_id"`
	Title       string    `gorm:"not null" bson:"title" json:"title"`
	Description string    `gorm:"not null" bson:"description" json:"description"`
	Category    string    `gorm:"index;not null" bson:"category" json:"category"`
	Type        string    `gorm:"index;not null" bson:"type" json:"type"`
	Location    string    `gorm:"not null" bson:"location" json:"location"`
	Date        time.Time `bson:"date" json:"date"`
	Image       string    `bson:"image,omitempty" json:"image,omitempty"`
	// Object key inside the bucket, needed to clean up the image on delete
	ImageKey    string    `bson:"image_key,omitempty" json:"-"`
	ContactInfo string    `bson:"contact_info" json:"contactInfo"`
	Status      string    `gorm:"index;default:open" bson:"status" json:"status"`
	UserID      string    `gorm:"index;not null" bson:"user_id" json:"userId"`
	CreatedAt   time.Time `gorm:"index" bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`

	Reporter *Reporter `gorm:"-" bson:"-" json:"reportedBy,omitempty"`
}

// ItemFilter narrows down item listings. Empty fields don't filter
type ItemFilter struct {
	Type       string
	Category   string
	Status     string
	ReportedBy string
	// Case insensitive match against title, description, category and location
	Query  string
	Oldest bool
	Page   int
	Limit  int
}
