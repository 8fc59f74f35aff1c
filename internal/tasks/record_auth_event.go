package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/clubhouse/internal/entities"
)

// AuditEventWriter persists a single audit event.
type AuditEventWriter interface {
	Log(ctx context.Context, event *entities.AuditEvent) error
}

// RecordAuthEventTask carries an auth outcome from the request path to the
// audit table.
type RecordAuthEventTask struct {
	Event entities.AuditEvent `json:"event"`
}

func (t RecordAuthEventTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "record_auth_event",
		MaxAttempts: 5,
		Backoff:     10 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   time.Hour,
			OnlyFailed: true,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func RecordAuthEventProcessor(writer AuditEventWriter) backlite.QueueProcessor[RecordAuthEventTask] {
	return func(ctx context.Context, task RecordAuthEventTask) error {
		if writer == nil {
			return fmt.Errorf("audit writer not configured")
		}
		event := task.Event
		event.ID = 0
		if err := writer.Log(ctx, &event); err != nil {
			return fmt.Errorf("record audit event: %w", err)
		}
		return nil
	}
}

func NewRecordAuthEventQueue(writer AuditEventWriter) backlite.Queue {
	return backlite.NewQueue(RecordAuthEventProcessor(writer))
}
