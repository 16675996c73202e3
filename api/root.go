package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// Page routes and the HTML file each of them serves
var pages = map[string]string{
	"/":                "index",
	"/login":           "login",
	"/register":        "register",
	"/verify":          "verify",
	"/forgot-password": "forgot-password",
	"/reset-password":  "reset-password",
	"/dashboard":       "dashboard",
	"/report":          "report",
	"/my-items":        "my-items",
	"/item/:id":        "item",
	"/search":          "search",
}

func (a *API) Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (a *API) registerPages(g *gin.RouterGroup) {
	for route, name := range pages {
		g.GET(route, a.page(name))
	}
}

func (a *API) page(name string) gin.HandlerFunc {
	file := filepath.Join(a.Config.App.PagesDir, name+".html")

	return func(c *gin.Context) {
		c.File(file)
	}
}
