package api

import (
	"bitwise74/campus-finder/service"
	"bitwise74/campus-finder/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) ItemImage(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	if !a.Items.UploadsEnabled() {
		Err(KindUnavailable, service.ErrStorageDisabled.Error()).Send(c)
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Err(KindTooLarge, validators.ErrImageTooLarge.Error()).Send(c)
			return
		}

		Err(KindValidation, validators.ErrNoImage.Error()).Send(c)
		return
	}

	code, f, mime, err := validators.ImageValidator(fh, a.Config.Storage.MaxImageSize)
	if err != nil {
		switch code {
		case http.StatusRequestEntityTooLarge:
			Err(KindTooLarge, err.Error()).Send(c)
		case http.StatusBadRequest:
			Err(KindValidation, err.Error()).Send(c)
		default:
			Err(KindInternal, internalError).Send(c)

			zap.L().Error("Failed to read uploaded image", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}
	defer f.Close()

	item, err := a.Items.AttachImage(c.Request.Context(), userID, c.Param("id"), f, mime)
	if err != nil {
		if errors.Is(err, service.ErrNotItemOwner) {
			Err(KindAuthorization, "You are not authorized to update this item").Send(c)
			return
		}

		fromError(c, err, "Failed to attach item image").Send(c)
		return
	}

	Ok("", gin.H{"item": item}).Send(c)
}
