package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/clubhouse/internal/config"
	"github.com/mrlokans/clubhouse/internal/entities"
	"github.com/mrlokans/clubhouse/internal/logging"
	"github.com/mrlokans/clubhouse/internal/observability"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(DBPath(filepath.Join(t.TempDir(), "test.db")), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func startClient(t *testing.T, client *Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go client.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		client.Stop(stopCtx)
		cancel()
	})
}

func TestDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "clubhouse-tasks.db"), DBPath("data/clubhouse.db"))
	assert.Equal(t, "clubhouse-tasks", DBPath("clubhouse"))
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	tasksDBPath := DBPath(filepath.Join(tmpDir, "test.db"))

	client, err := NewClient(tasksDBPath, DefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(filepath.Join(tmpDir, "test-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")

	assert.NoError(t, client.Close())
}

func TestClient_StopWithoutStart(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.Stop(context.Background()))
}

type recordingWriter struct {
	mu     sync.Mutex
	events []entities.AuditEvent
	done   chan struct{}
}

func (w *recordingWriter) Log(_ context.Context, event *entities.AuditEvent) error {
	w.mu.Lock()
	w.events = append(w.events, *event)
	w.mu.Unlock()
	w.done <- struct{}{}
	return nil
}

func TestClient_EnqueueAuditEvent(t *testing.T) {
	client := newTestClient(t)
	writer := &recordingWriter{done: make(chan struct{}, 1)}
	client.Register(NewRecordAuthEventQueue(writer))
	startClient(t, client)

	err := client.EnqueueAuditEvent(context.Background(), &entities.AuditEvent{
		ID:        99,
		EventType: entities.AuditEventAuth,
		Action:    entities.AuditActionSignup,
		Email:     "ann@example.com",
		Status:    entities.AuditStatusSuccess,
	})
	require.NoError(t, err)

	select {
	case <-writer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("audit event was not recorded within timeout")
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Len(t, writer.events, 1)
	assert.Equal(t, "ann@example.com", writer.events[0].Email)
	assert.Zero(t, writer.events[0].ID, "ids are assigned by the database")
}

type stubPurger struct {
	n   int64
	err error
}

func (p stubPurger) Purge(context.Context) (int64, error) { return p.n, p.err }

func TestPurgeExpiredSessionsProcessor(t *testing.T) {
	t.Run("records purged count", func(t *testing.T) {
		metrics := observability.NewMetrics()
		process := PurgeExpiredSessionsProcessor(stubPurger{n: 3}, metrics, logging.Discard())

		require.NoError(t, process(context.Background(), PurgeExpiredSessionsTask{}))
		assert.Equal(t, 3.0, testutil.ToFloat64(metrics.SessionsPurged))
	})

	t.Run("store failure", func(t *testing.T) {
		process := PurgeExpiredSessionsProcessor(stubPurger{err: errors.New("locked")}, nil, logging.Discard())
		assert.Error(t, process(context.Background(), PurgeExpiredSessionsTask{}))
	})

	t.Run("not configured", func(t *testing.T) {
		process := PurgeExpiredSessionsProcessor(nil, nil, logging.Discard())
		assert.Error(t, process(context.Background(), PurgeExpiredSessionsTask{}))
	})
}

type stubCleaner struct {
	retention time.Duration
}

func (c *stubCleaner) DeleteOldEvents(_ context.Context, retention time.Duration) (int64, error) {
	c.retention = retention
	return 2, nil
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	tests := []struct {
		name string
		days int
		want time.Duration
	}{
		{"configured retention", 7, 7 * 24 * time.Hour},
		{"defaults to 30 days", 0, 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaner := &stubCleaner{}
			process := CleanupAuditEventsProcessor(cleaner, logging.Discard())

			require.NoError(t, process(context.Background(), CleanupAuditEventsTask{RetentionDays: tt.days}))
			assert.Equal(t, tt.want, cleaner.retention)
		})
	}
}

func TestQueueConfigs(t *testing.T) {
	configs := []backlite.QueueConfig{
		RecordAuthEventTask{}.Config(),
		PurgeExpiredSessionsTask{}.Config(),
		CleanupAuditEventsTask{}.Config(),
	}
	names := map[string]bool{}
	for _, cfg := range configs {
		assert.NotEmpty(t, cfg.Name)
		assert.Positive(t, cfg.MaxAttempts)
		assert.Positive(t, cfg.Timeout)
		assert.NotNil(t, cfg.Retention)
		names[cfg.Name] = true
	}
	assert.Len(t, names, len(configs), "queue names must be unique")
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.Tasks{Workers: 4})
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionDuration)
}

func TestPairsToFields(t *testing.T) {
	fields := pairsToFields([]any{"queue", "purge", "attempt", 2, "dangling"})
	assert.Equal(t, "purge", fields["queue"])
	assert.Equal(t, 2, fields["attempt"])
	assert.Equal(t, "dangling", fields["extra"])
}
