package api

import (
	"bitwise74/campus-finder/service"
	"errors"

	"github.com/gin-gonic/gin"
)

func (a *API) ItemDelete(c *gin.Context) {
	userID := c.MustGet("userID").(string)

	err := a.Items.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotItemOwner) {
			Err(KindAuthorization, "You are not authorized to delete this item").Send(c)
			return
		}

		fromError(c, err, "Failed to delete item").Send(c)
		return
	}

	Ok("Item deleted successfully", nil).Send(c)
}
