package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SessionStoreKind selects where server-side sessions are persisted.
type SessionStoreKind string

const (
	SessionStoreDatabase SessionStoreKind = "database" // Same database as users (SQLite or PostgreSQL)
	SessionStoreRedis    SessionStoreKind = "redis"
	SessionStoreMemory   SessionStoreKind = "memory" // Lost on restart, development only
)

type (
	Config struct {
		HTTP
		Global
		Database
		Sessions
		Auth
		UI
		Tasks
		Audit
		Log
		Metrics
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		URL string // SQLite file path, or a postgres:// connection string
	}
	Sessions struct {
		Store         SessionStoreKind
		RedisURL      string
		Secret        string        // Cookie signing and CSRF key; hex or raw
		TTL           time.Duration // Fixed lifetime from creation, no sliding renewal
		SecureCookies bool          // Set to false for local dev without HTTPS
		PurgeSchedule string        // Cron format: "*/15 * * * *"
	}
	Auth struct {
		BcryptCost int

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	UI struct {
		TemplatesPath string // Empty means use the templates embedded in the binary
		StaticPath    string // Overrides the embedded static assets when the directory exists
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Audit struct {
		RetentionDays   int    // Days to keep audit events (default: 30)
		CleanupSchedule string // Cron format: "0 3 * * *"
	}
	Log struct {
		Level  string // logrus level name
		Format string // "text" or "json"
	}
	Metrics struct {
		Enabled bool
	}
)

// IsPostgres reports whether the database URL points at PostgreSQL rather
// than a SQLite file.
func (d Database) IsPostgres() bool {
	return strings.HasPrefix(d.URL, "postgres://") || strings.HasPrefix(d.URL, "postgresql://")
}

// Validate reports settings the application cannot run with.
func (c *Config) Validate() error {
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be a positive duration such as 1h or 3600 (seconds), got %s", c.Sessions.TTL)
	}
	return nil
}

// durationSetting reads a Go duration string. Bare integers are seconds.
// Unparseable values yield 0.
func durationSetting(v *viper.Viper, key string) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

// NewConfig reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// take precedence over it.
func NewConfig() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 3000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_url", DefaultDatabasePath)

	// Session defaults
	v.SetDefault("session_store", string(SessionStoreDatabase))
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("session_secret", "") // Auto-generated if empty
	v.SetDefault("session_ttl", DefaultSessionTTL.String())
	v.SetDefault("secure_cookies", false)
	v.SetDefault("session_purge_schedule", "*/15 * * * *")

	// Auth defaults
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	v.SetDefault("templates_path", "")
	v.SetDefault("static_path", "") // Empty means use the assets embedded in the binary

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "0 3 * * *") // Daily at 03:00

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("metrics_enabled", true)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			URL: v.GetString("DATABASE_URL"),
		},
		Sessions: Sessions{
			Store:         SessionStoreKind(strings.ToLower(v.GetString("SESSION_STORE"))),
			RedisURL:      v.GetString("REDIS_URL"),
			Secret:        v.GetString("SESSION_SECRET"),
			TTL:           durationSetting(v, "SESSION_TTL"),
			SecureCookies: v.GetBool("SECURE_COOKIES"),
			PurgeSchedule: v.GetString("SESSION_PURGE_SCHEDULE"),
		},
		Auth: Auth{
			BcryptCost:       v.GetInt("BCRYPT_COST"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  durationSetting(v, "AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  durationSetting(v, "AUTH_LOCKOUT_DURATION"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      durationSetting(v, "TASK_RELEASE_AFTER"),
			CleanupInterval:   durationSetting(v, "TASK_CLEANUP_INTERVAL"),
			RetentionDuration: durationSetting(v, "TASK_RETENTION_DURATION"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}
}
