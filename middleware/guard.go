package middleware

import (
	"bitwise74/campus-finder/security"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	// Pages that need a session
	ProtectedPaths = []string{"/dashboard", "/report", "/my-items", "/item"}
	// Pages that make no sense with a session
	AuthPaths = []string{"/login", "/register", "/forgot-password", "/reset-password", "/verify"}
)

// hasPathPrefix matches whole segments, /item matches /item and /item/x
// but not /items
func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if hasPathPrefix(path, p) {
			return true
		}
	}

	return false
}

// isLocalPath accepts only same-origin absolute paths
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

// NewGuard redirects page requests based on the session cookie. It never
// touches the database, a cookie counts as a session when it verifies
func NewGuard(codec *security.SessionCodec, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		token, _ := c.Cookie(SessionCookie)

		if matchesAny(path, ProtectedPaths) {
			if token == "" {
				c.Redirect(http.StatusTemporaryRedirect, "/login?redirect="+url.QueryEscape(path))
				c.Abort()
				return
			}

			if _, err := codec.Verify(token); err != nil {
				ClearSessionCookie(c, secure)
				c.Redirect(http.StatusTemporaryRedirect, "/login")
				c.Abort()
				return
			}
		}

		if token != "" && matchesAny(path, AuthPaths) {
			if _, err := codec.Verify(token); err == nil {
				target := "/dashboard"
				if r := c.Query("redirect"); r != "" && isLocalPath(r) {
					target = r
				}

				c.Redirect(http.StatusTemporaryRedirect, target)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
