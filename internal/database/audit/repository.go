package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/clubhouse/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(ctx context.Context, event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// GetEvents retrieves audit events, most recent first. An empty email
// returns events for all accounts.
func (r *Repository) GetEvents(ctx context.Context, email string, limit int) ([]entities.AuditEvent, error) {
	var events []entities.AuditEvent

	query := r.db.WithContext(ctx).Model(&entities.AuditEvent{})
	if email != "" {
		query = query.Where("email = ?", email)
	}
	if limit <= 0 {
		limit = 50
	}

	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&events).Error
	return events, err
}

// DeleteOldEvents removes audit events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
