package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStore_RedisBackend(t *testing.T) {
	testBackendContract(t, func(t *testing.T) Backend {
		_, client := newTestRedis(t)
		return NewRedisBackend(client, "")
	})
}

func TestRedisBackend_NativeExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := NewStore(NewRedisBackend(client, "test:"), time.Hour)

	sess, err := store.Create(ctx, "Ann", "ann@x.io")
	require.NoError(t, err)

	key := "test:" + hashKey(sess.ID)
	assert.True(t, mr.Exists(key))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(key).Seconds(), 2)

	mr.FastForward(time.Hour + time.Second)

	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisBackend_CommitPastExpiryDeletes(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	backend := NewRedisBackend(client, "")

	require.NoError(t, backend.Commit(ctx, "k", []byte("v"), time.Now().Add(time.Hour)))
	require.True(t, mr.Exists(DefaultRedisPrefix+"k"))

	require.NoError(t, backend.Commit(ctx, "k", []byte("v"), time.Now().Add(-time.Second)))
	assert.False(t, mr.Exists(DefaultRedisPrefix+"k"))
}

func TestRedisBackend_Unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	backend := NewRedisBackend(client, "")
	mr.Close()

	_, _, err := backend.Find(context.Background(), "k")
	assert.ErrorIs(t, err, ErrRedisUnavailable)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = OpenRedis(context.Background(), "not a url")
	assert.Error(t, err)
}
