// Package observability holds the Prometheus metrics for auth and session
// activity and the handler that exposes them.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth attempt outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid_input"
	OutcomeDuplicate   = "duplicate_email"
	OutcomeNotFound    = "user_not_found"
	OutcomeBadPassword = "bad_password"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Guard check outcomes.
const (
	GuardAllowed = "allowed"
	GuardDenied  = "denied"
	GuardError   = "error"
)

// Metrics contains the application's Prometheus collectors. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	AuthAttempts   *prometheus.CounterVec
	Logouts        prometheus.Counter
	GuardChecks    *prometheus.CounterVec
	SessionsPurged prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a private registry that also carries
// the standard Go and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubhouse_auth_attempts_total",
				Help: "Total number of signup and login attempts by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		Logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubhouse_logouts_total",
			Help: "Total number of logouts",
		}),
		GuardChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clubhouse_guard_checks_total",
				Help: "Total number of protected-route session checks by outcome",
			},
			[]string{"outcome"},
		),
		SessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubhouse_sessions_purged_total",
			Help: "Total number of expired sessions removed by the purge task",
		}),
		registry: registry,
	}

	registry.MustRegister(m.AuthAttempts, m.Logouts, m.GuardChecks, m.SessionsPurged)
	return m
}

func (m *Metrics) RecordAuthAttempt(action, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) RecordLogout() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
}

func (m *Metrics) RecordGuardCheck(outcome string) {
	if m == nil {
		return
	}
	m.GuardChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordSessionsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsPurged.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
