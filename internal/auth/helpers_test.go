package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/clubhouse/internal/entities"
	"github.com/mrlokans/clubhouse/internal/observability"
	"github.com/mrlokans/clubhouse/internal/sessions"
)

// memUserStore is an in-memory UserStore keyed by email.
type memUserStore struct {
	mu        sync.Mutex
	users     map[string]*entities.User
	nextID    uint
	findErr   error // returned by FindByEmail when set
	createErr error // returned by Create when set
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*entities.User)}
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *memUserStore) Create(_ context.Context, user *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.users[user.Email]; exists {
		return ErrDuplicateEmail
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	copied := *user
	s.users[user.Email] = &copied
	return nil
}

func (s *memUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// countingSessions wraps a session store and counts creations.
type countingSessions struct {
	*sessions.Store
	mu      sync.Mutex
	created int
}

func (s *countingSessions) Create(ctx context.Context, name, email string) (*sessions.Session, error) {
	s.mu.Lock()
	s.created++
	s.mu.Unlock()
	return s.Store.Create(ctx, name, email)
}

// failingSessions fails every operation.
type failingSessions struct{}

var errStoreDown = errors.New("session store unavailable")

func (failingSessions) Create(context.Context, string, string) (*sessions.Session, error) {
	return nil, errStoreDown
}
func (failingSessions) Get(context.Context, string) (*sessions.Session, error) {
	return nil, errStoreDown
}
func (failingSessions) Destroy(context.Context, string) error { return errStoreDown }

// recordingAudit captures audit events.
type recordingAudit struct {
	mu     sync.Mutex
	events []*entities.AuditEvent
}

func (r *recordingAudit) Record(_ context.Context, event *entities.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) last() *entities.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	svc      *Service
	users    *memUserStore
	sessions *countingSessions
	audit    *recordingAudit
	metrics  *observability.Metrics
	clock    *testClock
	limiter  *RateLimiter
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Now()}
	backend := sessions.NewMemoryBackend(0)
	store := &countingSessions{Store: sessions.NewStore(backend, time.Hour, sessions.WithClock(clock.Now))}

	limiter := NewRateLimiter(DefaultRateLimitConfig())
	t.Cleanup(limiter.Stop)

	env := &testEnv{
		users:    newMemUserStore(),
		sessions: store,
		audit:    &recordingAudit{},
		metrics:  observability.NewMetrics(),
		clock:    clock,
		limiter:  limiter,
	}
	env.svc = NewService(env.users, env.sessions, NewBcryptHasher(bcrypt.MinCost),
		WithRateLimiter(limiter),
		WithEventRecorder(env.audit),
		WithMetrics(env.metrics),
	)
	return env
}

func (e *testEnv) signup(t *testing.T, name, email, password string) *sessions.Session {
	t.Helper()
	sess, err := e.svc.Signup(context.Background(), SignupInput{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("Signup(%q) error = %v", email, err)
	}
	return sess
}
