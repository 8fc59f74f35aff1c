package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/clubhouse/internal/audit"
	"github.com/mrlokans/clubhouse/internal/auth"
	"github.com/mrlokans/clubhouse/internal/config"
	"github.com/mrlokans/clubhouse/internal/database"
	dbaudit "github.com/mrlokans/clubhouse/internal/database/audit"
	"github.com/mrlokans/clubhouse/internal/database/postgres"
	"github.com/mrlokans/clubhouse/internal/database/users"
	http_controllers "github.com/mrlokans/clubhouse/internal/http"
	"github.com/mrlokans/clubhouse/internal/sessions"
)

// memoryCleanupInterval is how often the in-memory session backend sweeps
// expired records.
const memoryCleanupInterval = time.Minute

// Stores bundles the persistence backends selected by configuration.
type Stores struct {
	Users          auth.UserStore
	AuditEvents    audit.Repository
	SessionBackend sessions.Backend
	HealthChecks   []http_controllers.HealthCheck

	// Exactly one of these is set.
	SQLite *database.Database
	Pool   *pgxpool.Pool

	closers []func() error
}

// OpenStores connects the credential store, audit repository and session
// backend described by cfg. PostgreSQL schemas are migrated before use;
// SQLite schemas are auto-migrated by gorm.
func OpenStores(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*Stores, error) {
	s := &Stores{}

	if cfg.Database.IsPostgres() {
		if err := migratePostgres(cfg.Database.URL); err != nil {
			return nil, err
		}
		pool, err := postgres.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		s.Pool = pool
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		s.Users = postgres.NewUserRepository(pool)
		s.AuditEvents = postgres.NewAuditRepository(pool)
		s.HealthChecks = append(s.HealthChecks, http_controllers.HealthCheck{Name: "database", Check: pool.Ping})
		logger.WithField("driver", "postgres").Info("Connected to database")
	} else {
		db, err := database.NewDatabase(cfg.Database.URL, logger)
		if err != nil {
			return nil, err
		}
		s.SQLite = db
		s.closers = append(s.closers, db.Close)
		sqlDB, err := db.SQLDB()
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Users = users.NewRepository(db.DB)
		s.AuditEvents = dbaudit.NewRepository(db.DB)
		s.HealthChecks = append(s.HealthChecks, http_controllers.HealthCheck{Name: "database", Check: sqlDB.PingContext})
		logger.WithFields(logrus.Fields{"driver": "sqlite", "path": cfg.Database.URL}).Info("Opened database")
	}

	if err := s.openSessionBackend(ctx, cfg.Sessions); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.WithField("store", cfg.Sessions.Store).Info("Session store ready")

	return s, nil
}

func (s *Stores) openSessionBackend(ctx context.Context, cfg config.Sessions) error {
	switch cfg.Store {
	case config.SessionStoreDatabase, "":
		if s.Pool != nil {
			s.SessionBackend = sessions.NewPostgresBackend(s.Pool)
			return nil
		}
		sqlDB, err := s.SQLite.SQLDB()
		if err != nil {
			return err
		}
		backend, err := sessions.NewSQLiteBackend(sqlDB)
		if err != nil {
			return fmt.Errorf("sqlite session store: %w", err)
		}
		s.SessionBackend = backend

	case config.SessionStoreRedis:
		client, err := sessions.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, client.Close)
		s.SessionBackend = sessions.NewRedisBackend(client, sessions.DefaultRedisPrefix)
		s.HealthChecks = append(s.HealthChecks, http_controllers.HealthCheck{
			Name:  "sessions",
			Check: func(ctx context.Context) error { return pingRedis(ctx, client) },
		})

	case config.SessionStoreMemory:
		backend := sessions.NewMemoryBackend(memoryCleanupInterval)
		s.closers = append(s.closers, backend.Close)
		s.SessionBackend = backend

	default:
		return fmt.Errorf("unknown session store %q", cfg.Store)
	}
	return nil
}

// Close releases every backend in reverse order of opening.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func migratePostgres(url string) error {
	m, err := postgres.NewMigrator(url)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

func pingRedis(ctx context.Context, client redis.UniversalClient) error {
	return client.Ping(ctx).Err()
}
