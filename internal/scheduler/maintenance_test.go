package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mrlokans/clubhouse/internal/logging"
)

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"*/15 * * * *", true},
		{"0 3 * * *", true},
		{"@hourly", true},
		{"@every 30s", true},
		{"not a schedule", false},
		{"* * * * * *", false},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMaintenanceScheduler_RunsJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	ran := make(chan struct{}, 1)
	job := Job{
		Name:     "purge_expired_sessions",
		Schedule: "@every 1s",
		Run: func(ctx context.Context) error {
			runs.Add(1)
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := NewMaintenanceScheduler(logging.Discard(), job)
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())

	next, ok := s.NextRun("purge_expired_sessions")
	assert.True(t, ok)
	assert.False(t, next.IsZero())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	cancel()
	require.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestMaintenanceScheduler_FailingJobKeepsRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	job := Job{
		Name:     "cleanup_audit_events",
		Schedule: "@every 1s",
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("database is locked")
		},
	}

	s := NewMaintenanceScheduler(logging.Discard(), job)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestMaintenanceScheduler_InvalidSchedule(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewMaintenanceScheduler(nil, Job{
		Name:     "broken",
		Schedule: "every tuesday",
		Run:      func(context.Context) error { return nil },
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.False(t, s.IsRunning())
}

func TestMaintenanceScheduler_EmptyScheduleSkipsJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewMaintenanceScheduler(nil, Job{Name: "disabled", Run: func(context.Context) error { return nil }})
	require.NoError(t, s.Start(context.Background()))

	_, ok := s.NextRun("disabled")
	assert.False(t, ok)

	s.Stop()
	s.Stop()
}
