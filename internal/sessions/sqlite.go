package sessions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexedwards/scs/sqlite3store"
)

// SQLiteBackend stores sessions in the application's SQLite database using
// the scs sqlite3store table layout.
type SQLiteBackend struct {
	*ScsBackend
	db *sql.DB
}

// NewSQLiteBackend creates the sessions table if needed. Expired rows are
// removed by Purge rather than a background goroutine.
func NewSQLiteBackend(db *sql.DB) (*SQLiteBackend, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return &SQLiteBackend{
		ScsBackend: NewScsBackend(sqlite3store.NewWithCleanupInterval(db, 0)),
		db:         db,
	}, nil
}

// Purge deletes rows whose expiry has passed.
func (b *SQLiteBackend) Purge(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM sessions WHERE expiry < julianday('now')`)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
