package api

import (
	"bitwise74/campus-finder/validators"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type verifyBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	// Older clients send the code as otp
	OTP string `json:"otp"`
}

func (a *API) AuthVerify(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data verifyBody
	if err := c.ShouldBindJSON(&data); err != nil {
		bindError(c, err, "Email and verification code are required").Send(c)
		return
	}

	email := validators.NormalizeEmail(data.Email)
	code := strings.TrimSpace(data.Code)
	if code == "" {
		code = strings.TrimSpace(data.OTP)
	}

	if email == "" || code == "" {
		Err(KindValidation, "Email and verification code are required").Send(c)
		return
	}

	u, err := a.Verification.Verify(c.Request.Context(), email, code)
	if err != nil {
		fromError(c, err, "Failed to verify user").Send(c)
		return
	}

	if err := a.setSession(c, u.ID); err != nil {
		Err(KindInternal, internalError).Send(c)

		zap.L().Error("Failed to issue session token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	Ok("Email verified successfully!", gin.H{"user": u.Public()}).Send(c)
}
