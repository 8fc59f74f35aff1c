package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/clubhouse/internal/audit"
	"github.com/mrlokans/clubhouse/internal/auth"
	"github.com/mrlokans/clubhouse/internal/config"
	http_controllers "github.com/mrlokans/clubhouse/internal/http"
	"github.com/mrlokans/clubhouse/internal/logging"
	"github.com/mrlokans/clubhouse/internal/observability"
	"github.com/mrlokans/clubhouse/internal/scheduler"
	"github.com/mrlokans/clubhouse/internal/sessions"
	"github.com/mrlokans/clubhouse/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App is the fully wired application.
type App struct {
	Config    *config.Config
	Logger    logrus.FieldLogger
	Stores    *Stores
	Sessions  *sessions.Store
	Audit     *audit.Service
	Tasks     *tasks.Client // nil when TASKS_ENABLED=false
	Scheduler *scheduler.MaintenanceScheduler
	Metrics   *observability.Metrics
	Router    *gin.Engine

	limiter   *auth.RateLimiter
	stopTasks context.CancelFunc
	closed    bool
}

// Build validates cfg, opens the stores and wires services, background
// workers and the router. Background workers are not started; see Start.
func Build(ctx context.Context, cfg *config.Config, version string, logger logrus.FieldLogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	stores, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Stores:   stores,
		Sessions: sessions.NewStore(stores.SessionBackend, cfg.Sessions.TTL),
		Metrics:  observability.NewMetrics(),
	}

	secret, err := sessionSecret(cfg.Sessions.Secret, logger)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	auditOpts := []audit.Option{audit.WithLogger(logger.WithField("component", "audit"))}
	if cfg.Tasks.Enabled {
		app.Tasks, err = tasks.NewClient(tasksDBPath(cfg.Database), tasks.ConfigFrom(cfg.Tasks), logger)
		if err != nil {
			_ = stores.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		auditOpts = append(auditOpts, audit.WithQueue(app.Tasks))
	}
	app.Audit = audit.NewService(stores.AuditEvents, auditOpts...)

	if app.Tasks != nil {
		app.Tasks.Register(
			tasks.NewRecordAuthEventQueue(app.Audit),
			tasks.NewPurgeExpiredSessionsQueue(app.Sessions, app.Metrics, logger),
			tasks.NewCleanupAuditEventsQueue(app.Audit, logger),
		)
	}

	app.limiter = auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	})

	authService := auth.NewService(
		stores.Users,
		app.Sessions,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.WithRateLimiter(app.limiter),
		auth.WithEventRecorder(app.Audit),
		auth.WithMetrics(app.Metrics),
		auth.WithLogger(logger.WithField("component", "auth")),
	)

	app.Scheduler = scheduler.NewMaintenanceScheduler(logger, app.maintenanceJobs()...)

	healthChecks := append([]http_controllers.HealthCheck{}, stores.HealthChecks...)
	app.Router = http_controllers.NewRouter(http_controllers.RouterConfig{
		AuthService:   authService,
		Cookies:       auth.NewCookieCodec(secret, cfg.Sessions.TTL, cfg.Sessions.SecureCookies),
		CSRFSecret:    secret,
		SecureCookies: cfg.Sessions.SecureCookies,
		TemplatesPath: cfg.UI.TemplatesPath,
		StaticPath:    cfg.UI.StaticPath,
		Metrics:       app.Metrics,
		ExposeMetrics: cfg.Metrics.Enabled,
		HealthChecks:  healthChecks,
		Logger:        logger,
		Version:       version,
	})

	return app, nil
}

// maintenanceJobs enqueues periodic work on the task queue, or runs it
// inline when the queue is disabled.
func (a *App) maintenanceJobs() []scheduler.Job {
	purge := scheduler.Job{
		Name:     "purge_expired_sessions",
		Schedule: a.Config.Sessions.PurgeSchedule,
		Run: func(ctx context.Context) error {
			if a.Tasks != nil {
				_, err := a.Tasks.Add(tasks.PurgeExpiredSessionsTask{}).Ctx(ctx).Save()
				return err
			}
			n, err := a.Sessions.Purge(ctx)
			if err != nil {
				return err
			}
			a.Metrics.RecordSessionsPurged(n)
			return nil
		},
	}

	retentionDays := a.Config.Audit.RetentionDays
	cleanup := scheduler.Job{
		Name:     "cleanup_audit_events",
		Schedule: a.Config.Audit.CleanupSchedule,
		Run: func(ctx context.Context) error {
			if a.Tasks != nil {
				_, err := a.Tasks.Add(tasks.CleanupAuditEventsTask{RetentionDays: retentionDays}).Ctx(ctx).Save()
				return err
			}
			_, err := a.Audit.DeleteOldEvents(ctx, time.Duration(retentionDays)*24*time.Hour)
			return err
		},
	}

	return []scheduler.Job{purge, cleanup}
}

// Start launches the task workers and the maintenance scheduler.
func (a *App) Start(ctx context.Context) error {
	if a.Tasks != nil {
		var taskCtx context.Context
		taskCtx, a.stopTasks = context.WithCancel(context.WithoutCancel(ctx))
		go a.Tasks.Start(taskCtx)
	}
	return a.Scheduler.Start(ctx)
}

// StopBackground stops the scheduler so no new maintenance work is queued.
func (a *App) StopBackground() {
	a.Scheduler.Stop()
}

// Close drains the task queue, flushes pending audit writes and closes every
// store. Safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	if a.closed {
		return nil
	}
	a.closed = true

	a.Scheduler.Stop()
	if a.stopTasks != nil {
		a.Tasks.Stop(ctx)
		a.stopTasks()
	}
	a.Audit.Wait()
	a.limiter.Stop()

	var errs []error
	if a.Tasks != nil {
		if err := a.Tasks.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close task queue: %w", err))
		}
	}
	if err := a.Stores.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Serve runs srv until ctx is cancelled, then shuts it down within timeout.
// onShutdown runs after the server has stopped accepting requests.
func Serve(ctx context.Context, srv *http.Server, logger logrus.FieldLogger, timeout time.Duration, onShutdown ShutdownFunc) error {
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.WithField("timeout", timeout).Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}

// Run builds the application from cfg and serves it until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.WithField("version", version).Info("Starting clubhouse")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Build(ctx, cfg, version, logger)
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	if err := app.Start(ctx); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = app.Close(closeCtx)
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Stop queuing maintenance work before the server drains.
	go func() {
		<-ctx.Done()
		app.StopBackground()
	}()

	onShutdown := func(ctx context.Context) {
		if err := app.Close(ctx); err != nil {
			logging.LogError(logger, "Error during shutdown", err, nil)
		}
	}

	if err := Serve(ctx, srv, logger, timeout, onShutdown); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = app.Close(closeCtx)
		return err
	}
	return nil
}

// sessionSecret decodes the configured secret, or generates an ephemeral
// one. Generated secrets invalidate every cookie on restart.
func sessionSecret(configured string, logger logrus.FieldLogger) ([]byte, error) {
	if configured != "" {
		return auth.DecodeSecret(configured), nil
	}
	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	logger.Warn("Generated session secret (set SESSION_SECRET to persist sessions across restarts)")
	return auth.DecodeSecret(generated), nil
}

// tasksDBPath places the queue database next to the SQLite database, or in
// the working directory when the main database is PostgreSQL.
func tasksDBPath(db config.Database) string {
	if db.IsPostgres() {
		return tasks.DBPath(config.DefaultDatabasePath)
	}
	return tasks.DBPath(db.URL)
}
