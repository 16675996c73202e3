package api

import (
	"bitwise74/campus-finder/service"
	"bitwise74/campus-finder/validators"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Fields left out of the body stay as they are. Owner and ID aren't part
// of the body at all
type itemPatchBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	Category    *string `json:"category"`
	Location    *string `json:"location"`
	Date        *string `json:"date"`
	ContactInfo *string `json:"contactInfo"`
	Status      *string `json:"status"`
	Image       *string `json:"image"`
}

func lowered(s *string) *string {
	if s == nil {
		return nil
	}

	v := strings.ToLower(strings.TrimSpace(*s))
	return &v
}

func (b *itemPatchBody) patch(now time.Time) (service.ItemPatch, error) {
	p := service.ItemPatch{
		Title:       b.Title,
		Description: b.Description,
		Type:        lowered(b.Type),
		Category:    lowered(b.Category),
		Location:    b.Location,
		ContactInfo: b.ContactInfo,
		Status:      lowered(b.Status),
		Image:       b.Image,
	}

	if p.Title != nil {
		if err := validators.ItemTitleValidator(*p.Title); err != nil {
			return p, err
		}
	}

	if p.Description != nil {
		if err := validators.ItemDescriptionValidator(*p.Description); err != nil {
			return p, err
		}
	}

	if p.Location != nil {
		if err := locationValidator(*p.Location); err != nil {
			return p, err
		}
	}

	if p.Type != nil {
		if err := validators.ItemTypeValidator(*p.Type); err != nil {
			return p, err
		}
	}

	if p.Category != nil {
		if err := validators.ItemCategoryValidator(*p.Category); err != nil {
			return p, err
		}
	}

	if p.Status != nil {
		if err := validators.ItemStatusValidator(*p.Status); err != nil {
			return p, err
		}
	}

	if p.Image != nil {
		trimmed := strings.TrimSpace(*p.Image)
		if err := imageURLValidator(trimmed); err != nil {
			return p, err
		}
		p.Image = &trimmed
	}

	if b.Date != nil {
		d, err := validators.ParseItemDate(*b.Date, now)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}

	return p, nil
}

func (a *API) ItemEdit(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data itemPatchBody
	if err := c.ShouldBindJSON(&data); err != nil {
		bindError(c, err, validators.ErrItemFieldsMissing.Error()).Send(c)
		return
	}

	p, err := data.patch(time.Now().UTC())
	if err != nil {
		zap.L().Debug("Invalid item update", zap.Error(err), zap.String("requestID", requestID))

		Err(KindValidation, err.Error()).Send(c)
		return
	}

	item, err := a.Items.Update(c.Request.Context(), userID, c.Param("id"), p)
	if err != nil {
		if errors.Is(err, service.ErrNotItemOwner) {
			Err(KindAuthorization, "You are not authorized to update this item").Send(c)
			return
		}

		fromError(c, err, "Failed to update item").Send(c)
		return
	}

	Ok("Item updated successfully", gin.H{"item": item}).Send(c)
}
