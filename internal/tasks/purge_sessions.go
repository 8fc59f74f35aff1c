package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/clubhouse/internal/observability"
)

// SessionPurger removes expired sessions from the backing store.
type SessionPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// PurgeExpiredSessionsTask deletes sessions past their expiry. Expired
// sessions are already rejected on read; this only reclaims storage.
type PurgeExpiredSessionsTask struct{}

func (t PurgeExpiredSessionsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_expired_sessions",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func PurgeExpiredSessionsProcessor(purger SessionPurger, metrics *observability.Metrics, logger logrus.FieldLogger) backlite.QueueProcessor[PurgeExpiredSessionsTask] {
	return func(ctx context.Context, _ PurgeExpiredSessionsTask) error {
		if purger == nil {
			return fmt.Errorf("session purger not configured")
		}

		purged, err := purger.Purge(ctx)
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}

		metrics.RecordSessionsPurged(purged)
		if purged > 0 {
			logger.WithField("purged", purged).Info("Purged expired sessions")
		}
		return nil
	}
}

func NewPurgeExpiredSessionsQueue(purger SessionPurger, metrics *observability.Metrics, logger logrus.FieldLogger) backlite.Queue {
	return backlite.NewQueue(PurgeExpiredSessionsProcessor(purger, metrics, logger))
}
