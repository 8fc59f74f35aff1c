package postgres

import (
	"errors"
	"io/fs"
	"regexp"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrate struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	closed     bool
}

func (f *fakeMigrate) Up() error   { return f.upErr }
func (f *fakeMigrate) Down() error { return f.downErr }
func (f *fakeMigrate) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}
func (f *fakeMigrate) Close() (error, error) {
	f.closed = true
	return nil, nil
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://app@db:5432/clubhouse", "pgx5://app@db:5432/clubhouse"},
		{"postgresql://app@db/clubhouse?sslmode=disable", "pgx5://app@db/clubhouse?sslmode=disable"},
		{"pgx5://app@db/clubhouse", "pgx5://app@db/clubhouse"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

func TestMigrator_Up(t *testing.T) {
	t.Run("no change is not an error", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{upErr: migrate.ErrNoChange}}
		assert.NoError(t, m.Up())
	})

	t.Run("failure is wrapped", func(t *testing.T) {
		boom := errors.New("syntax error")
		m := &Migrator{m: &fakeMigrate{upErr: boom}}
		assert.ErrorIs(t, m.Up(), boom)
	})
}

func TestMigrator_Down(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{downErr: migrate.ErrNoChange}}
	assert.NoError(t, m.Down())
}

func TestMigrator_Version(t *testing.T) {
	t.Run("fresh database", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}
		v, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Zero(t, v)
		assert.False(t, dirty)
	})

	t.Run("applied", func(t *testing.T) {
		m := &Migrator{m: &fakeMigrate{version: 3}}
		v, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(3), v)
		assert.False(t, dirty)
	})
}

func TestMigrator_Close(t *testing.T) {
	fake := &fakeMigrate{}
	m := &Migrator{m: fake}
	require.NoError(t, m.Close())
	assert.True(t, fake.closed)
}

func TestMigrationsFS_Pairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^(\d{6})_[a-z_]+\.(up|down)\.sql$`)
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		m := pattern.FindStringSubmatch(e.Name())
		require.NotNil(t, m, "unexpected migration file %s", e.Name())
		if m[2] == "up" {
			ups[m[1]] = true
		} else {
			downs[m[1]] = true
		}
	}

	assert.Len(t, ups, 3)
	assert.Equal(t, ups, downs)
}
