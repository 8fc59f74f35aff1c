package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/clubhouse/internal/entities"
)

func TestAuditRepository_LogEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO audit_events`).
		WithArgs("auth", "login", "ann@example.com", "bad_password", "192.0.2.1", "curl", "failed", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uint(11)))

	event := &entities.AuditEvent{
		EventType: entities.AuditEventAuth,
		Action:    entities.AuditActionLogin,
		Email:     "ann@example.com",
		Reason:    "bad_password",
		IPAddress: "192.0.2.1",
		UserAgent: "curl",
		Status:    entities.AuditStatusFailed,
	}
	require.NoError(t, NewAuditRepository(mock).LogEvent(context.Background(), event))

	assert.Equal(t, uint(11), event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_GetEvents(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "event_type", "action", "email", "reason", "ip_address", "user_agent", "status", "created_at"}
	mock.ExpectQuery(`SELECT .* FROM audit_events`).
		WithArgs("ann@example.com", 50).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(uint(2), "auth", "logout", "ann@example.com", "", "", "", "success", at).
			AddRow(uint(1), "auth", "signup", "ann@example.com", "", "", "", "success", at.Add(-time.Minute)))

	events, err := NewAuditRepository(mock).GetEvents(context.Background(), "ann@example.com", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, entities.AuditEventAuth, events[0].EventType)
	assert.Equal(t, entities.AuditActionLogout, events[0].Action)
	assert.Equal(t, entities.AuditStatusSuccess, events[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_DeleteOldEvents(t *testing.T) {
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("reports deleted rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM audit_events WHERE created_at < \$1`).
			WithArgs(cutoff).
			WillReturnResult(pgxmock.NewResult("DELETE", 4))

		n, err := NewAuditRepository(mock).DeleteOldEvents(context.Background(), cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM audit_events`).
			WithArgs(cutoff).
			WillReturnError(errors.New("connection reset"))

		_, err = NewAuditRepository(mock).DeleteOldEvents(context.Background(), cutoff)
		assert.Error(t, err)
	})
}
