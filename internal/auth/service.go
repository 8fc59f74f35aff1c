package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/clubhouse/internal/entities"
	"github.com/mrlokans/clubhouse/internal/logging"
	"github.com/mrlokans/clubhouse/internal/observability"
	"github.com/mrlokans/clubhouse/internal/sessions"
)

// UserStore persists user records. Implementations return ErrUserNotFound
// for unknown emails and ErrDuplicateEmail when Create hits an existing one.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	Create(ctx context.Context, user *entities.User) error
}

// SessionStore issues and resolves server-side sessions.
type SessionStore interface {
	Create(ctx context.Context, name, email string) (*sessions.Session, error)
	Get(ctx context.Context, id string) (*sessions.Session, error)
	Destroy(ctx context.Context, id string) error
}

// PasswordHasher produces and checks password digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// EventRecorder receives auth outcomes for the audit trail. Recording is
// best effort and must not block the request.
type EventRecorder interface {
	Record(ctx context.Context, event *entities.AuditEvent)
}

// Service handles signup, login, logout and session authorization.
type Service struct {
	users    UserStore
	sessions SessionStore
	hasher   PasswordHasher
	limiter  *RateLimiter
	audit    EventRecorder
	metrics  *observability.Metrics
	logger   logrus.FieldLogger
}

type ServiceOption func(*Service)

func WithRateLimiter(rl *RateLimiter) ServiceOption {
	return func(s *Service) { s.limiter = rl }
}

func WithEventRecorder(r EventRecorder) ServiceOption {
	return func(s *Service) { s.audit = r }
}

func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l logrus.FieldLogger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new authentication service.
func NewService(users UserStore, sessionStore SessionStore, hasher PasswordHasher, opts ...ServiceOption) *Service {
	s := &Service{
		users:    users,
		sessions: sessionStore,
		hasher:   hasher,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers a new user and starts a session for them.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*sessions.Session, error) {
	in.normalize()

	if err := validateInput(&in); err != nil {
		s.finish(ctx, entities.AuditActionSignup, in.Email, in.Client, err)
		return nil, err
	}

	sess, err := s.signup(ctx, in)
	s.finish(ctx, entities.AuditActionSignup, in.Email, in.Client, err)
	return sess, err
}

func (s *Service) signup(ctx context.Context, in SignupInput) (*sessions.Session, error) {
	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	sess, err := s.sessions.Create(ctx, user.Name, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Login verifies credentials and starts a session. Repeated failures for the
// same client and email are locked out by the rate limiter, when configured.
func (s *Service) Login(ctx context.Context, in LoginInput) (*sessions.Session, error) {
	in.normalize()

	if err := validateInput(&in); err != nil {
		s.finish(ctx, entities.AuditActionLogin, in.Email, in.Client, err)
		return nil, err
	}

	if s.limiter != nil {
		if allowed, retryAfter := s.limiter.Reserve(in.Client.IPAddress, in.Email); !allowed {
			err := &RateLimitError{RetryAfter: retryAfter}
			s.finish(ctx, entities.AuditActionLogin, in.Email, in.Client, err)
			return nil, err
		}
	}

	sess, err := s.login(ctx, in)
	if s.limiter != nil {
		switch {
		case err == nil:
			s.limiter.RecordSuccess(in.Client.IPAddress, in.Email)
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidCredentials):
			s.limiter.RecordFailure(in.Client.IPAddress, in.Email)
		default:
			s.limiter.Release(in.Client.IPAddress, in.Email)
		}
	}
	s.finish(ctx, entities.AuditActionLogin, in.Email, in.Client, err)
	return sess, err
}

func (s *Service) login(ctx context.Context, in LoginInput) (*sessions.Session, error) {
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.Name, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Logout destroys the session. It never fails from the caller's point of
// view; store errors are logged.
func (s *Service) Logout(ctx context.Context, sessionID string, client ClientInfo) {
	var email string
	if sess, err := s.sessions.Get(ctx, sessionID); err == nil {
		email = sess.Email
	}

	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		logging.LogError(s.logger, "failed to destroy session", err, nil)
	}

	s.metrics.RecordLogout()
	if email != "" {
		s.record(ctx, entities.AuditActionLogout, email, client, entities.AuditStatusSuccess, "")
	}
}

// Authorize resolves a session identifier to the user it was issued for.
// Missing, unknown and expired sessions all yield ErrUnauthenticated.
func (s *Service) Authorize(ctx context.Context, sessionID string) (*entities.UserSummary, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			s.metrics.RecordGuardCheck(observability.GuardDenied)
			return nil, ErrUnauthenticated
		}
		s.metrics.RecordGuardCheck(observability.GuardError)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s.metrics.RecordGuardCheck(observability.GuardAllowed)
	return &entities.UserSummary{Name: sess.Name, Email: sess.Email}, nil
}

// finish records metrics and the audit event for a signup or login outcome.
func (s *Service) finish(ctx context.Context, action, email string, client ClientInfo, err error) {
	outcome := outcomeOf(err)
	s.metrics.RecordAuthAttempt(action, outcome)

	if outcome == observability.OutcomeError {
		logging.LogError(s.logger, action+" failed", err, logrus.Fields{"email": email})
	}

	status := entities.AuditStatusSuccess
	if err != nil {
		status = entities.AuditStatusFailed
	}
	if outcome == observability.OutcomeInvalid {
		// Nothing worth auditing in a malformed form.
		return
	}
	s.record(ctx, action, email, client, status, reasonOf(outcome))
}

func (s *Service) record(ctx context.Context, action, email string, client ClientInfo, status entities.AuditStatus, reason string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, &entities.AuditEvent{
		EventType: entities.AuditEventAuth,
		Action:    action,
		Email:     email,
		Reason:    reason,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Status:    status,
	})
}

func outcomeOf(err error) string {
	var (
		verr  *ValidationError
		rlerr *RateLimitError
	)
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case errors.As(err, &verr):
		return observability.OutcomeInvalid
	case errors.As(err, &rlerr):
		return observability.OutcomeRateLimited
	case errors.Is(err, ErrDuplicateEmail):
		return observability.OutcomeDuplicate
	case errors.Is(err, ErrUserNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return observability.OutcomeBadPassword
	default:
		return observability.OutcomeError
	}
}

func reasonOf(outcome string) string {
	if outcome == observability.OutcomeSuccess {
		return ""
	}
	return outcome
}
