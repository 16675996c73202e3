package api

import (
	"bitwise74/campus-finder/validators"

	"github.com/gin-gonic/gin"
)

type emailBody struct {
	Email string `json:"email"`
}

func (a *API) AuthResend(c *gin.Context) {
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

	res, err := a.Verification.Resend(c.Request.Context(), email)
	if err != nil {
		fromError(c, err, "Failed to resend verification code").Send(c)
		return
	}

	r := Ok("Verification code has been sent to your email.", gin.H{
		"verificationCode": res.Code,
	})

	if res.MailFailed {
		r = r.With(gin.H{"warning": "Email delivery might be delayed"})
	}

	r.Send(c)
}
