package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/clubhouse/internal/entities"
	"github.com/mrlokans/clubhouse/internal/logging"
)

// Client wraps backlite to provide task queue functionality.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config
	logger logrus.FieldLogger

	mu      sync.RWMutex
	started bool
}

// DBPath returns the path of the tasks database kept alongside mainDBPath,
// e.g. ./clubhouse.db -> ./clubhouse-tasks.db.
func DBPath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	return filepath.Join(dir, name+"-tasks"+ext)
}

// NewClient creates a new task queue client with a dedicated SQLite database
// at tasksDBPath.
func NewClient(tasksDBPath string, cfg Config, logger logrus.FieldLogger) (*Client, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	// Open dedicated SQLite connection for tasks with WAL mode
	db, err := sql.Open("sqlite3", tasksDBPath+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}

	// Configure connection pool for concurrent workers
	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &taskLogger{logger: logger.WithField("component", "tasks")},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}

	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	return &Client{
		client: client,
		db:     db,
		config: cfg,
		logger: logger,
	}, nil
}

// Register registers task queues with the client.
// Must be called before Start().
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start begins processing tasks. It returns immediately; use Stop() for
// graceful shutdown.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.logger.WithField("workers", c.config.Workers).Info("Task queue started")
	c.client.Start(ctx)
}

// Stop gracefully shuts down the task queue, waiting for active tasks to complete.
// Returns true if all workers finished before the context deadline.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	if !c.started {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()

	c.logger.Info("Stopping task queue...")
	success := c.client.Stop(ctx)
	if success {
		c.logger.Info("Task queue stopped gracefully")
	} else {
		c.logger.Warn("Task queue stopped with timeout (some tasks may not have completed)")
	}
	return success
}

// Close releases all resources. Should be called after Stop().
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Add starts an operation to enqueue one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// EnqueueAuditEvent queues event for the record_auth_event processor.
func (c *Client) EnqueueAuditEvent(ctx context.Context, event *entities.AuditEvent) error {
	if _, err := c.Add(RecordAuthEventTask{Event: *event}).Ctx(ctx).Save(); err != nil {
		return fmt.Errorf("enqueue audit event: %w", err)
	}
	return nil
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// taskLogger implements backlite.Logger on top of logrus. backlite passes
// key/value pairs after the message.
type taskLogger struct {
	logger logrus.FieldLogger
}

func (l *taskLogger) Info(message string, params ...any) {
	l.logger.WithFields(pairsToFields(params)).Debug(message)
}

func (l *taskLogger) Error(message string, params ...any) {
	l.logger.WithFields(pairsToFields(params)).Error(message)
}

func pairsToFields(params []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(params); i += 2 {
		key, ok := params[i].(string)
		if !ok {
			key = fmt.Sprint(params[i])
		}
		fields[key] = params[i+1]
	}
	if len(params)%2 == 1 {
		fields["extra"] = params[len(params)-1]
	}
	return fields
}
