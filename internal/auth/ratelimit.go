package auth

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// RateLimiter tracks failed login attempts per IP+email combination using a
// fixed window that starts at the first failure.
type RateLimiter struct {
	mu              sync.RWMutex
	attempts        map[string]*attemptRecord
	maxAttempts     int
	windowDuration  time.Duration
	lockoutDuration time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

type attemptRecord struct {
	count        int
	pending      int // reserved attempts whose outcome is not known yet
	firstAttempt time.Time
	lockedUntil  time.Time
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	MaxAttempts     int           // Maximum attempts before lockout (default: 5)
	WindowDuration  time.Duration // Time window for counting attempts (default: 15m)
	LockoutDuration time.Duration // How long to lock out after max attempts (default: 30m)
	CleanupInterval time.Duration // How often to clean up expired records (default: 5m)
}

// RateLimitError is returned by Login while a client is locked out.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many login attempts, retry in %s", e.RetryAfter.Round(time.Minute))
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop.
// Call Stop to release it.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	defaults := DefaultRateLimitConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = defaults.WindowDuration
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = defaults.LockoutDuration
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}

	rl := &RateLimiter{
		attempts:        make(map[string]*attemptRecord),
		maxAttempts:     cfg.MaxAttempts,
		windowDuration:  cfg.WindowDuration,
		lockoutDuration: cfg.LockoutDuration,
		cleanupInterval: cfg.CleanupInterval,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the background cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// makeKey creates a unique key for IP+email combination.
func (rl *RateLimiter) makeKey(ip, email string) string {
	return ip + "|" + strings.ToLower(email)
}

// Allow checks if a login attempt should be allowed.
// If not allowed, retryAfter indicates when the lockout expires.
func (rl *RateLimiter) Allow(ip, email string) (bool, time.Duration) {
	key := rl.makeKey(ip, email)
	now := rl.now()

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return rl.check(rl.attempts[key], now)
}

// Reserve is Allow that also holds one attempt slot until the outcome is
// reported with RecordFailure, RecordSuccess or Release. Concurrent attempts
// for the same key cannot exceed the limit between check and record.
func (rl *RateLimiter) Reserve(ip, email string) (bool, time.Duration) {
	key := rl.makeKey(ip, email)
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record := rl.attempts[key]
	allowed, retryAfter := rl.check(record, now)
	if !allowed {
		return false, retryAfter
	}
	if record == nil {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[key] = record
	}
	record.pending++
	return true, 0
}

// Release returns a slot taken by Reserve for an attempt that neither
// succeeded nor failed on credentials.
func (rl *RateLimiter) Release(ip, email string) {
	key := rl.makeKey(ip, email)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[key]
	if !exists {
		return
	}
	if record.pending > 0 {
		record.pending--
	}
	if record.count == 0 && record.pending == 0 && record.lockedUntil.IsZero() {
		delete(rl.attempts, key)
	}
}

// check must be called with rl.mu held.
func (rl *RateLimiter) check(record *attemptRecord, now time.Time) (bool, time.Duration) {
	if record == nil {
		return true, 0
	}

	if !record.lockedUntil.IsZero() && now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}

	// A new window starts once the old one expired or a lockout was served;
	// earlier failures no longer count.
	count := record.count
	if now.Sub(record.firstAttempt) > rl.windowDuration || !record.lockedUntil.IsZero() {
		count = 0
	}

	if count+record.pending >= rl.maxAttempts {
		// Reached only through in-flight reservations; their outcome decides
		// whether a lockout follows.
		return false, time.Second
	}
	return true, 0
}

// RecordFailure records a failed login attempt and reports whether it
// triggered a lockout.
func (rl *RateLimiter) RecordFailure(ip, email string) (bool, time.Duration) {
	key := rl.makeKey(ip, email)
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[key]
	if !exists {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[key] = record
	}
	if record.pending > 0 {
		record.pending--
	}

	// Reset if window expired or a previous lockout has been served
	lockoutServed := !record.lockedUntil.IsZero() && !now.Before(record.lockedUntil)
	if now.Sub(record.firstAttempt) > rl.windowDuration || lockoutServed {
		record.count = 0
		record.firstAttempt = now
		record.lockedUntil = time.Time{}
	}

	record.count++

	if record.count >= rl.maxAttempts {
		record.lockedUntil = now.Add(rl.lockoutDuration)
		return true, rl.lockoutDuration
	}

	return false, 0
}

// RecordSuccess clears the failure record for a successful login.
func (rl *RateLimiter) RecordSuccess(ip, email string) {
	key := rl.makeKey(ip, email)

	rl.mu.Lock()
	delete(rl.attempts, key)
	rl.mu.Unlock()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup removes records whose window and lockout have both expired.
func (rl *RateLimiter) cleanup() {
	now := rl.now()
	expiry := rl.windowDuration + rl.lockoutDuration

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, record := range rl.attempts {
		windowExpired := now.Sub(record.firstAttempt) > expiry
		lockoutExpired := record.lockedUntil.IsZero() || now.After(record.lockedUntil)

		if windowExpired && lockoutExpired && record.pending == 0 {
			delete(rl.attempts, key)
		}
	}
}
