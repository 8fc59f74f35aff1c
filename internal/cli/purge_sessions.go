package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/clubhouse/internal/entrypoint"
	"github.com/mrlokans/clubhouse/internal/logging"
	"github.com/mrlokans/clubhouse/internal/sessions"
)

// NewPurgeSessionsCmd creates the purge-sessions subcommand, a one-off run
// of the scheduled session purge.
func NewPurgeSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired sessions from the session store",
		Long: `Delete expired sessions now instead of waiting for the scheduled purge.
Redis and in-memory stores expire sessions on their own; for them this is a
no-op.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			logger := logging.NewWithOutput(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

			stores, err := entrypoint.OpenStores(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			store := sessions.NewStore(stores.SessionBackend, cfg.Sessions.TTL)
			n, err := store.Purge(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Purged %d expired sessions\n", n)
			return nil
		},
	}
}
