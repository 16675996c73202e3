package api

import (
	"bitwise74/campus-finder/service"
	"bitwise74/campus-finder/validators"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerBody struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	ContactNumber   string `json:"contactNumber" binding:"required"`
}

func (a *API) AuthRegister(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBindJSON(&data); err != nil {
		bindError(c, err, "Please fill in all fields").Send(c)
		return
	}

	data.Name = strings.TrimSpace(data.Name)
	data.Email = validators.NormalizeEmail(data.Email)
	data.ContactNumber = strings.TrimSpace(data.ContactNumber)

	if data.Name == "" {
		Err(KindValidation, "Please fill in all fields").Send(c)
		return
	}

	checks := []error{
		validators.EmailValidator(data.Email),
		validators.PasswordValidator(data.Password),
		validators.ConfirmValidator(data.Password, data.ConfirmPassword),
		validators.ContactNumberValidator(data.ContactNumber),
	}

	for _, err := range checks {
		if err != nil {
			zap.L().Debug("Invalid registration", zap.Error(err), zap.String("requestID", requestID))

			Err(KindValidation, err.Error()).Send(c)
			return
		}
	}

	res, err := a.Verification.Register(c.Request.Context(), service.RegisterInput{
		Name:          data.Name,
		Email:         data.Email,
		Password:      data.Password,
		ContactNumber: data.ContactNumber,
	})
	if err != nil {
		fromError(c, err, "Failed to register user").Send(c)
		return
	}

	r := Ok("Registration successful! Please check your email for the verification code.", gin.H{
		"verificationCode": res.Code,
	})

	if res.MailFailed {
		r = r.With(gin.H{"warning": "Email delivery might be delayed"})
	}

	r.Send(c)
}
