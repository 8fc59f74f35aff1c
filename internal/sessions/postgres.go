package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgQuerier is the subset of *pgxpool.Pool used by PostgresBackend.
type PgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend stores sessions in the sessions table created by the
// PostgreSQL migrations.
type PostgresBackend struct {
	pool PgQuerier
}

func NewPostgresBackend(pool PgQuerier) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Find(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := b.pool.QueryRow(ctx,
		`SELECT data FROM sessions WHERE token = $1 AND expiry > now()`, key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select session: %w", err)
	}
	return data, true, nil
}

func (b *PostgresBackend) Commit(ctx context.Context, key string, data []byte, expiry time.Time) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO sessions (token, data, expiry) VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET data = EXCLUDED.data, expiry = EXCLUDED.expiry
	`, key, data, expiry)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Purge deletes rows whose expiry has passed.
func (b *PostgresBackend) Purge(ctx context.Context) (int64, error) {
	tag, err := b.pool.Exec(ctx, `DELETE FROM sessions WHERE expiry < now()`)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
