package middleware

import (
	"bitwise74/campus-finder/security"
	"net/http"

	"github.com/gin-gonic/gin"
)

const SessionCookie = "auth_token"

// SetSessionCookie stores token in the HttpOnly session cookie for maxAge
// seconds
func SetSessionCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// RequireSession only lets requests with a valid session cookie through and
// sets userID for the handlers after it
func RequireSession(codec *security.SessionCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("requestID")

		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":   false,
				"error":     "Unauthorized",
				"requestID": requestID,
			})
			return
		}

		claims, err := codec.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":   false,
				"error":     "Invalid token",
				"requestID": requestID,
			})
			return
		}

		c.Set("userID", claims.UserID())
		c.Next()
	}
}
