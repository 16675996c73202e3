package middleware

import (
	"bitwise74/campus-finder/config"
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const turnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type turnstileResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

type Turnstile struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewTurnstile(cfg config.TurnstileConfig) *Turnstile {
	return &Turnstile{
		secret:    cfg.SecretToken,
		verifyURL: turnstileVerifyURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewTurnstileMiddleware checks the TurnstileToken header against Cloudflare
// when turnstile is enabled and does nothing otherwise
func NewTurnstileMiddleware(cfg config.TurnstileConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return NewTurnstile(cfg).Handler()
}

func (t *Turnstile) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("requestID")

		token := c.Request.Header.Get("TurnstileToken")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success":   false,
				"error":     "Missing or invalid turnstile token",
				"requestID": requestID,
			})
			return
		}

		payload := gin.H{
			"secret":   t.secret,
			"response": token,
			"remoteip": c.ClientIP(),
		}

		jsonBody, _ := json.Marshal(payload)
		resp, err := t.client.Post(t.verifyURL, "application/json", bytes.NewReader(jsonBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success":   false,
				"error":     "Captcha verification is unavailable",
				"requestID": requestID,
			})

			zap.L().Error("Failed to reach turnstile", zap.Error(err), zap.String("requestID", requestID))
			return
		}
		defer resp.Body.Close()

		var res turnstileResponse
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil || !res.Success {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":   false,
				"error":     "Unauthorized",
				"requestID": requestID,
			})

			zap.L().Debug("Turnstile rejected request", zap.Strings("codes", res.ErrorCodes), zap.String("requestID", requestID))
			return
		}

		c.Next()
	}
}
