package api

import (
	"bitwise74/campus-finder/service"
	"bitwise74/campus-finder/validators"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *API) AuthLogin(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		bindError(c, err, "Email and password are required").Send(c)
		return
	}

	u, err := a.Creds.Authenticate(c.Request.Context(), validators.NormalizeEmail(data.Email), data.Password)
	if err != nil {
		if errors.Is(err, service.ErrNotVerified) {
			Err(KindUnverified, err.Error()).With(gin.H{
				"needsVerification": true,
				"email":             u.Email,
			}).Send(c)
			return
		}

		fromError(c, err, "Failed to authenticate user").Send(c)
		return
	}

	if err := a.setSession(c, u.ID); err != nil {
		Err(KindInternal, internalError).Send(c)

		zap.L().Error("Failed to issue session token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	Ok("Login successful", gin.H{"user": u.Public()}).Send(c)
}
