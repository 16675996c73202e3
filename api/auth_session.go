package api

import (
	"bitwise74/campus-finder/middleware"

	"github.com/gin-gonic/gin"
)

// AuthLogout only clears the cookie, tokens stay valid until they expire
func (a *API) AuthLogout(c *gin.Context) {
	middleware.ClearSessionCookie(c, a.secureCookies())
	Ok("Logged out successfully", nil).Send(c)
}

func (a *API) AuthMe(c *gin.Context) {
	userID := c.MustGet("userID").(string)

	u, err := a.Creds.FindByID(c.Request.Context(), userID)
	if err != nil {
		fromError(c, err, "Failed to fetch user").Send(c)
		return
	}

	Ok("", gin.H{"user": u.Public()}).Send(c)
}
