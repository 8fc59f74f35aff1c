package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/clubhouse/internal/config"
	"github.com/mrlokans/clubhouse/internal/database"
	"github.com/mrlokans/clubhouse/internal/database/postgres"
	"github.com/mrlokans/clubhouse/internal/logging"
)

var errPostgresOnly = errors.New("only supported for PostgreSQL databases")

// NewMigrateCmd creates the migrate subcommand and its up/down/version
// children. Bare "migrate" behaves like "migrate up".
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply the schema to the configured database. PostgreSQL uses versioned
migrations; SQLite databases are migrated automatically on open.`,
		RunE: runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (PostgreSQL only)",
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version (PostgreSQL only)",
		RunE:  runMigrateVersion,
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()

	if !cfg.Database.IsPostgres() {
		logger := logging.NewWithOutput(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
		db, err := database.NewDatabase(cfg.Database.URL, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		cmd.Printf("SQLite schema at %s is up to date\n", cfg.Database.URL)
		return nil
	}

	return withMigrator(cfg, func(m *postgres.Migrator) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations completed successfully")
		return nil
	})
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	if !cfg.Database.IsPostgres() {
		return fmt.Errorf("migrate down: %w", errPostgresOnly)
	}
	return withMigrator(cfg, func(m *postgres.Migrator) error {
		if err := m.Down(); err != nil {
			return err
		}
		cmd.Println("All migrations rolled back")
		return nil
	})
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	if !cfg.Database.IsPostgres() {
		return fmt.Errorf("migrate version: %w", errPostgresOnly)
	}
	return withMigrator(cfg, func(m *postgres.Migrator) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		cmd.Printf("version %d", version)
		if dirty {
			cmd.Print(" (dirty)")
		}
		cmd.Println()
		return nil
	})
}

func withMigrator(cfg *config.Config, fn func(*postgres.Migrator) error) error {
	m, err := postgres.NewMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}
