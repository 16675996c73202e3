package api

import (
	"bitwise74/campus-finder/service"
	"bitwise74/campus-finder/validators"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type resetBody struct {
	Email           string `json:"email"`
	Code            string `json:"code"`
	OTP             string `json:"otp"`
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (a *API) AuthReset(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data resetBody
	if err := c.ShouldBindJSON(&data); err != nil {
		bindError(c, err, "Please fill in all fields").Send(c)
		return
	}

	email := validators.NormalizeEmail(data.Email)
	code := strings.TrimSpace(data.Code)
	if code == "" {
		code = strings.TrimSpace(data.OTP)
	}
	token := strings.TrimSpace(data.Token)

	if email == "" || (code == "" && token == "") || data.Password == "" || data.ConfirmPassword == "" {
		Err(KindValidation, "Please fill in all fields").Send(c)
		return
	}

	if err := validators.ConfirmValidator(data.Password, data.ConfirmPassword); err != nil {
		Err(KindValidation, err.Error()).Send(c)
		return
	}

	if err := validators.PasswordValidator(data.Password); err != nil {
		zap.L().Debug("Invalid password", zap.Error(err), zap.String("requestID", requestID))

		Err(KindValidation, err.Error()).Send(c)
		return
	}

	err := a.Verification.ResetPassword(c.Request.Context(), service.ResetInput{
		Email:    email,
		Code:     code,
		Token:    token,
		Password: data.Password,
	})
	if err != nil {
		fromError(c, err, "Failed to reset password").Send(c)
		return
	}

	Ok("Password reset successful! You can now log in with your new password.", nil).Send(c)
}
