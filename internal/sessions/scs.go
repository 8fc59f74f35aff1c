package sessions

import (
	"context"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

// ScsBackend adapts any scs store to Backend.
type ScsBackend struct {
	store scs.Store
	stop  func()
}

// NewScsBackend wraps store. Stores implementing scs.CtxStore receive the
// caller's context.
func NewScsBackend(store scs.Store) *ScsBackend {
	return &ScsBackend{store: store}
}

// NewMemoryBackend creates an in-process backend. A zero cleanupInterval
// disables the background sweep; expired records are still never returned.
func NewMemoryBackend(cleanupInterval time.Duration) *ScsBackend {
	ms := memstore.NewWithCleanupInterval(cleanupInterval)
	b := &ScsBackend{store: ms}
	if cleanupInterval > 0 {
		b.stop = ms.StopCleanup
	}
	return b
}

func (b *ScsBackend) Find(ctx context.Context, key string) ([]byte, bool, error) {
	if cs, ok := b.store.(scs.CtxStore); ok {
		return cs.FindCtx(ctx, key)
	}
	return b.store.Find(key)
}

func (b *ScsBackend) Commit(ctx context.Context, key string, data []byte, expiry time.Time) error {
	if cs, ok := b.store.(scs.CtxStore); ok {
		return cs.CommitCtx(ctx, key, data, expiry)
	}
	return b.store.Commit(key, data, expiry)
}

func (b *ScsBackend) Delete(ctx context.Context, key string) error {
	if cs, ok := b.store.(scs.CtxStore); ok {
		return cs.DeleteCtx(ctx, key)
	}
	return b.store.Delete(key)
}

// Close stops the background cleanup goroutine, if any.
func (b *ScsBackend) Close() error {
	if b.stop != nil {
		b.stop()
		b.stop = nil
	}
	return nil
}
