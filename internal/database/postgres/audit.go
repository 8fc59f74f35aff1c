package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mrlokans/clubhouse/internal/entities"
)

type AuditRepository struct {
	db Querier
}

func NewAuditRepository(db Querier) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) LogEvent(ctx context.Context, event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO audit_events (event_type, action, email, reason, ip_address, user_agent, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, string(event.EventType), event.Action, event.Email, event.Reason,
		event.IPAddress, event.UserAgent, string(event.Status), event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// GetEvents returns events newest first. An empty email matches every account.
func (r *AuditRepository) GetEvents(ctx context.Context, email string, limit int) ([]entities.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, event_type, action, email, reason, ip_address, user_agent, status, created_at
		FROM audit_events
		WHERE $1 = '' OR email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, email, limit)
	if err != nil {
		return nil, fmt.Errorf("select audit events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.AuditEvent, error) {
		var (
			e         entities.AuditEvent
			eventType string
			status    string
		)
		err := row.Scan(&e.ID, &eventType, &e.Action, &e.Email, &e.Reason,
			&e.IPAddress, &e.UserAgent, &status, &e.CreatedAt)
		e.EventType = entities.AuditEventType(eventType)
		e.Status = entities.AuditStatus(status)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit events: %w", err)
	}
	return events, nil
}

func (r *AuditRepository) DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM audit_events WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("delete audit events: %w", err)
	}
	return tag.RowsAffected(), nil
}
