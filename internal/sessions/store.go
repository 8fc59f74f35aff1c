// Package sessions implements server-side sessions with a fixed lifetime.
//
// A session is addressed by an opaque random token that is handed to the
// client. Backends only ever see the SHA-256 of that token, so a leaked
// store does not leak usable session identifiers.
package sessions

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"
)

// ErrNotFound is returned for unknown, destroyed and expired sessions.
var ErrNotFound = errors.New("session not found")

const (
	keyName      = "name"
	keyEmail     = "email"
	keyCreatedAt = "created_at"

	tokenBytes = 32
)

func init() {
	gob.Register(time.Time{})
}

// Backend persists encoded session records under hashed keys.
// Implementations may drop records past their expiry on their own.
type Backend interface {
	Find(ctx context.Context, key string) ([]byte, bool, error)
	Commit(ctx context.Context, key string, data []byte, expiry time.Time) error
	Delete(ctx context.Context, key string) error
}

// Purger is implemented by backends that need expired records removed
// explicitly.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Session is the data bound to a logged-in browser.
type Session struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store issues, resolves and destroys sessions.
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	codec   scs.Codec
}

type Option func(*Store)

// WithClock overrides the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a session store over backend. Every session lives for ttl
// from its creation; there is no sliding renewal.
func NewStore(backend Backend, ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		codec:   scs.GobCodec{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the fixed session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session for the given user and returns it with a
// fresh identifier.
func (s *Store) Create(ctx context.Context, name, email string) (*Session, error) {
	id, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := s.now()
	sess := &Session{
		ID:        id,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := s.codec.Encode(sess.ExpiresAt, map[string]interface{}{
		keyName:      name,
		keyEmail:     email,
		keyCreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}

	if err := s.backend.Commit(ctx, hashKey(id), data, sess.ExpiresAt); err != nil {
		return nil, fmt.Errorf("commit session: %w", err)
	}
	return sess, nil
}

// Get resolves id to its session. A session found past its expiry is
// deleted and reported as ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	key := hashKey(id)
	data, found, err := s.backend.Find(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	sess, err := s.decode(id, data)
	if err != nil {
		return nil, err
	}

	if s.now().After(sess.ExpiresAt) {
		if err := s.backend.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, ErrNotFound
	}
	return sess, nil
}

// Destroy removes the session. Unknown identifiers are not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.backend.Delete(ctx, hashKey(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Purge removes expired records when the backend supports it and reports
// how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	p, ok := s.backend.(Purger)
	if !ok {
		return 0, nil
	}
	return p.Purge(ctx)
}

func (s *Store) decode(id string, data []byte) (*Session, error) {
	deadline, values, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	name, _ := values[keyName].(string)
	email, _ := values[keyEmail].(string)
	createdAt, _ := values[keyCreatedAt].(time.Time)
	if email == "" {
		return nil, fmt.Errorf("decode session: missing %q", keyEmail)
	}

	return &Session{
		ID:        id,
		Name:      name,
		Email:     email,
		CreatedAt: createdAt,
		ExpiresAt: deadline,
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashKey(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
