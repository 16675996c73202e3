package api

import (
	"bitwise74/campus-finder/validators"

	"github.com/gin-gonic/gin"
)

const forgotMessage = "If your email is registered, you will receive a password reset code"

// AuthForgot answers the same way whether or not the account exists
func (a *API) AuthForgot(c *gin.Context) {
	var data emailBody
	if err := c.ShouldBindJSON(&data); err != nil {
		bindError(c, err, validators.ErrEmailEmpty.Error()).Send(c)
		return
	}

	email := validators.NormalizeEmail(data.Email)
	if err := validators.EmailValidator(email); err != nil {
		Err(KindValidation, err.Error()).Send(c)
		return
	}

	res, err := a.Verification.ForgotPassword(c.Request.Context(), email)
	if err != nil {
		fromError(c, err, "Failed to start password reset").Send(c)
		return
	}

	r := Ok(forgotMessage, nil)

	if a.Config.App.ExposeResetCodes && res.Code != "" {
		r = r.With(gin.H{"resetCode": res.Code})
	}

	r.Send(c)
}
