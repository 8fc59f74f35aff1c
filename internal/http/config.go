package http

import (
	"html/template"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/clubhouse/internal/auth"
	"github.com/mrlokans/clubhouse/internal/observability"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	AuthService *auth.Service
	Cookies     *auth.CookieCodec

	// CSRF and cookie settings
	CSRFSecret    []byte
	SecureCookies bool

	// UI. Templates takes precedence over TemplatesPath; both empty means
	// the templates embedded in the binary. An empty StaticPath serves the
	// embedded assets.
	Templates     *template.Template
	TemplatesPath string
	StaticPath    string

	// PickImage returns an index in [0, n). Defaults to math/rand/v2.
	PickImage func(n int) int

	// Observability
	Metrics       *observability.Metrics
	ExposeMetrics bool
	HealthChecks  []HealthCheck
	Logger        logrus.FieldLogger

	// Application info
	Version string
}
