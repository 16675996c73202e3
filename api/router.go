// Package api contains all endpoints available
package api

import (
	"bitwise74/campus-finder/config"
	"bitwise74/campus-finder/middleware"
	"bitwise74/campus-finder/security"
	"bitwise74/campus-finder/service"
	"bitwise74/campus-finder/store"
	"fmt"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

// Deps are the things the router can't build on its own
type Deps struct {
	Config   *config.Config
	Store    store.Store
	Mailer   service.Mailer
	Attempts service.AttemptLimiter
	// nil when image uploads are disabled
	Objects service.ObjectStore
	Argon   *security.ArgonHash
}

type API struct {
	Router       *gin.Engine
	Config       *config.Config
	Sessions     *security.SessionCodec
	Creds        *service.Credentials
	Verification *service.Verification
	Items        *service.Items
	Limiter      *middleware.RateLimiter

	cache persist.CacheStore
}

func NewRouter(d Deps) (*API, error) {
	cfg := d.Config

	sessions, err := security.NewSessionCodec(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session codec, %w", err)
	}

	argon := d.Argon
	if argon == nil {
		argon = security.New()
	}

	creds := service.NewCredentials(d.Store, argon)

	a := &API{
		Config:       cfg,
		Sessions:     sessions,
		Creds:        creds,
		Verification: service.NewVerification(creds, d.Mailer, d.Attempts, service.WithResetURL(resetURL(cfg.Host))),
		Items:        service.NewItems(d.Store, d.Store, d.Objects),
		Limiter:      middleware.NewRateLimiter(cfg.Security.RateLimit, cfg.Security.RateBurst),
		cache:        persist.NewMemoryStore(time.Minute),
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.Host.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = cfg.Storage.MaxImageSize

	session := middleware.RequireSession(sessions)
	turnstile := middleware.NewTurnstileMiddleware(cfg.Cloudflare.Turnstile)
	smallBody := middleware.BodySizeLimiter(1 << 20)

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)
	}

	auth := main.Group("/auth", a.Limiter.Middleware(), smallBody)
	{
		// POST /api/auth/register		-> Creates an unverified account and sends the code
		auth.POST("/register", turnstile, a.AuthRegister)

		// POST /api/auth/login		-> Checks credentials and sets the session cookie
		auth.POST("/login", a.AuthLogin)

		// POST /api/auth/logout		-> Clears the session cookie
		auth.POST("/logout", a.AuthLogout)

		// GET /api/auth/me			-> Returns the logged in user
		auth.GET("/me", session, a.AuthMe)

		// POST /api/auth/verify		-> Confirms the emailed code and logs the user in
		auth.POST("/verify", a.AuthVerify)

		// POST /api/auth/resend-otp		-> Replaces the pending verification code
		auth.POST("/resend-otp", a.AuthResend)

		// POST /api/auth/forgot-password	-> Starts a password reset
		auth.POST("/forgot-password", turnstile, a.AuthForgot)

		// POST /api/auth/reset-password	-> Sets a new password with a code or link token
		auth.POST("/reset-password", a.AuthReset)
	}

	items := main.Group("/items")
	{
		// GET /api/items			-> Searches items
		items.GET("", a.cacheFor(10), a.ItemFetchBulk)

		// GET /api/items/:id			-> Returns a single item
		items.GET("/:id", a.ItemFetch)

		// POST /api/items			-> Reports a lost or found item
		items.POST("", session, smallBody, a.ItemCreate)

		// PUT /api/items/:id			-> Updates an item owned by the user
		items.PUT("/:id", session, smallBody, a.ItemEdit)

		// PATCH /api/items/:id		-> Same as PUT
		items.PATCH("/:id", session, smallBody, a.ItemEdit)

		// DELETE /api/items/:id		-> Deletes an item owned by the user
		items.DELETE("/:id", session, a.ItemDelete)

		// POST /api/items/:id/image		-> Uploads the image of an item
		items.POST("/:id/image", session, middleware.BodySizeLimiter(cfg.Storage.MaxImageSize+(1<<20)), a.ItemImage)
	}

	if cfg.App.PagesDir != "" {
		a.registerPages(router.Group("", middleware.NewGuard(sessions, cfg.App.Production())))
	}

	return a, nil
}

// MakeLogger replaces the global zap logger. Development gets colored
// console output, production gets JSON
func MakeLogger(app config.AppConfig) error {
	level, err := zapcore.ParseLevel(app.LogLevel)
	if err != nil {
		return err
	}

	var cfg zap.Config

	if app.Production() {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(gray + t.Format("15:04:05.000") + reset)
		}
		cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(gray + ec.TrimmedPath() + reset)
		}
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(log)
	return nil
}

func (a *API) cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(a.cache, time.Second*time.Duration(sec))
}

func (a *API) secureCookies() bool {
	return a.Config.App.Production()
}

func (a *API) setSession(c *gin.Context, userID string) error {
	token, _, err := a.Sessions.Issue(userID)
	if err != nil {
		return err
	}

	middleware.SetSessionCookie(c, token, int(a.Sessions.TTL().Seconds()), a.secureCookies())
	return nil
}

func resetURL(h config.HostConfig) string {
	if h.SSL.Enabled {
		return "https://" + h.Domain + "/reset-password"
	}

	if h.Port == 80 {
		return "http://" + h.Domain + "/reset-password"
	}

	return fmt.Sprintf("http://%s:%d/reset-password", h.Domain, h.Port)
}
