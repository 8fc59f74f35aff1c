package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/clubhouse/internal/auth"
	"github.com/mrlokans/clubhouse/internal/logging"
	"github.com/mrlokans/clubhouse/web"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Template parse errors panic, as they only occur with a broken TEMPLATES_PATH.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	router := gin.New()
	router.Use(RequestID())
	router.Use(RequestLogger(logger))
	router.Use(ErrorPages())
	router.Use(gin.CustomRecovery(recoverToErrorPage))

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF runs before the session is loaded so the token is in the context
	// for every rendered form.
	router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))

	guard := auth.NewGuard(cfg.AuthService, cfg.Cookies, logger)
	router.Use(guard.LoadSession())

	tmpl := cfg.Templates
	if tmpl == nil {
		var err error
		tmpl, err = LoadTemplates(cfg.TemplatesPath)
		if err != nil {
			panic(err)
		}
	}
	router.SetHTMLTemplate(tmpl)

	// Serve static files
	if dirExists(cfg.StaticPath) {
		router.Static("/static", cfg.StaticPath)
	} else {
		router.StaticFS("/static", http.FS(web.Static()))
	}

	authController := auth.NewAuthController(cfg.AuthService, cfg.Cookies, logger)
	authController.RegisterRoutes(router)

	ui := NewUIController(cfg.PickImage)
	router.GET("/", ui.HomePage)
	router.GET("/members", guard.RequireSession(), ui.MembersPage)
	router.NoRoute(ui.NotFound)

	// Health endpoints
	health := NewHealthController(cfg.HealthChecks, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if cfg.ExposeMetrics && cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	return router
}
