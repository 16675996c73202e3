package api

import (
	"bitwise74/campus-finder/service"
	"bitwise74/campus-finder/validators"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errImageURL = errors.New("Image must be a valid http or https URL")

type itemBody struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Location    string `json:"location" binding:"required"`
	Date        string `json:"date" binding:"required"`
	ContactInfo string `json:"contactInfo"`
	Image       string `json:"image"`
}

func (a *API) ItemCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data itemBody
	if err := c.ShouldBindJSON(&data); err != nil {
		bindError(c, err, validators.ErrItemFieldsMissing.Error()).Send(c)
		return
	}

	in := service.ItemInput{
		Title:       data.Title,
		Description: data.Description,
		Type:        strings.ToLower(strings.TrimSpace(data.Type)),
		Category:    strings.ToLower(strings.TrimSpace(data.Category)),
		Location:    data.Location,
		ContactInfo: data.ContactInfo,
		Image:       strings.TrimSpace(data.Image),
	}

	date, err := validators.ParseItemDate(data.Date, time.Now().UTC())

	checks := []error{
		validators.ItemTextValidator(in.Title, in.Description),
		locationValidator(in.Location),
		validators.ItemTypeValidator(in.Type),
		validators.ItemCategoryValidator(in.Category),
		err,
		imageURLValidator(in.Image),
	}

	for _, err := range checks {
		if err != nil {
			zap.L().Debug("Invalid item", zap.Error(err), zap.String("requestID", requestID))

			Err(KindValidation, err.Error()).Send(c)
			return
		}
	}

	in.Date = date

	item, err := a.Items.Create(c.Request.Context(), userID, in)
	if err != nil {
		fromError(c, err, "Failed to create item").Send(c)
		return
	}

	Ok("Item reported successfully", gin.H{"item": item}).Send(c)
}

func locationValidator(l string) error {
	if strings.TrimSpace(l) == "" {
		return validators.ErrItemFieldsMissing
	}

	return nil
}

// Image links are optional, uploads go through the image endpoint
func imageURLValidator(s string) error {
	if s == "" {
		return nil
	}

	u, err := url.ParseRequestURI(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errImageURL
	}

	return nil
}
