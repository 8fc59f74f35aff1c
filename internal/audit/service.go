// Package audit records authentication outcomes and prunes old events.
package audit

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/clubhouse/internal/entities"
	"github.com/mrlokans/clubhouse/internal/logging"
)

// Repository persists audit events. Implemented by the gorm and pgx
// repositories under internal/database.
type Repository interface {
	LogEvent(ctx context.Context, event *entities.AuditEvent) error
	GetEvents(ctx context.Context, email string, limit int) ([]entities.AuditEvent, error)
	DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// Enqueuer hands an event to the background task queue.
type Enqueuer interface {
	EnqueueAuditEvent(ctx context.Context, event *entities.AuditEvent) error
}

const maxUserAgentLength = 500

// Service provides high-level audit logging functionality.
type Service struct {
	repo   Repository
	queue  Enqueuer
	logger logrus.FieldLogger
	now    func() time.Time

	wg sync.WaitGroup
}

type Option func(*Service)

// WithQueue routes Record through the task queue. Without it events are
// written from a goroutine.
func WithQueue(q Enqueuer) Option {
	return func(s *Service) { s.queue = q }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new audit service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Log writes event synchronously.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// Record stores event without blocking the caller. Failures are logged and
// otherwise ignored.
func (s *Service) Record(ctx context.Context, event *entities.AuditEvent) {
	event.UserAgent = truncate(event.UserAgent, maxUserAgentLength)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}

	if s.queue != nil {
		err := s.queue.EnqueueAuditEvent(ctx, event)
		if err == nil {
			return
		}
		logging.LogError(s.logger, "Failed to enqueue audit event, writing directly", err,
			logrus.Fields{"action": event.Action})
	}
	s.LogAsync(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(ctx context.Context, event *entities.AuditEvent) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(ctx, event); err != nil {
			logging.LogError(s.logger, "Failed to log audit event", err,
				logrus.Fields{"action": event.Action, "email": event.Email})
		}
	}()
}

// Wait blocks until every write started by LogAsync has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// GetEvents returns the most recent events, optionally for a single email.
func (s *Service) GetEvents(ctx context.Context, email string, limit int) ([]entities.AuditEvent, error) {
	return s.repo.GetEvents(ctx, email, limit)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

// truncate shortens s to at most maxLen bytes, cutting on a rune boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
