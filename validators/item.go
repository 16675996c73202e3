package validators

import (
	"bitwise74/campus-finder/model"
	"errors"
	"slices"
	"strings"
	"time"
)

var (
	ErrItemFieldsMissing = errors.New("Please fill in all required fields")
	ErrItemType          = errors.New("Item type must be either lost or found")
	ErrItemCategory      = errors.New("Invalid item category")
	ErrItemStatus        = errors.New("Item status must be open, closed or claimed")
	ErrItemDate          = errors.New("Invalid date provided")
	ErrItemDateFuture    = errors.New("Date can't be in the future")
	ErrItemTitleTooLong  = errors.New("Title is too long")
	ErrItemTextTooLong   = errors.New("Description is too long")
)

const (
	maxTitleLen       = 120
	maxDescriptionLen = 2000
)

func ItemTypeValidator(t string) error {
	if !slices.Contains(model.ItemTypes, t) {
		return ErrItemType
	}

	return nil
}

func ItemCategoryValidator(c string) error {
	if !slices.Contains(model.ItemCategories, c) {
		return ErrItemCategory
	}

	return nil
}

func ItemStatusValidator(s string) error {
	if !slices.Contains(model.ItemStatuses, s) {
		return ErrItemStatus
	}

	return nil
}

func ItemTitleValidator(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrItemFieldsMissing
	}

	if len(title) > maxTitleLen {
		return ErrItemTitleTooLong
	}

	return nil
}

func ItemDescriptionValidator(description string) error {
	if strings.TrimSpace(description) == "" {
		return ErrItemFieldsMissing
	}

	if len(description) > maxDescriptionLen {
		return ErrItemTextTooLong
	}

	return nil
}

func ItemTextValidator(title, description string) error {
	if err := ItemTitleValidator(title); err != nil {
		return err
	}

	return ItemDescriptionValidator(description)
}

// ParseItemDate accepts either a plain YYYY-MM-DD date as sent by date inputs
// or a full RFC 3339 timestamp. Dates after now are rejected
func ParseItemDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrItemFieldsMissing
	}

	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		d, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, ErrItemDate
		}
	}

	// A plain date of today is fine until the day is over
	limit := now
	if len(s) == len(time.DateOnly) {
		limit = time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
	}

	if d.After(limit) {
		return time.Time{}, ErrItemDateFuture
	}

	return d, nil
}
