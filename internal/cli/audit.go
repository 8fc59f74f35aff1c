package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrlokans/clubhouse/internal/audit"
	"github.com/mrlokans/clubhouse/internal/entrypoint"
	"github.com/mrlokans/clubhouse/internal/logging"
)

// NewAuditCmd creates the audit subcommand, which lists recent auth events.
func NewAuditCmd() *cobra.Command {
	var (
		email string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent signup, login and logout events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			logger := logging.NewWithOutput(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

			stores, err := entrypoint.OpenStores(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			events, err := audit.NewService(stores.AuditEvents).GetEvents(cmd.Context(), email, limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				cmd.Println("No events")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tACTION\tSTATUS\tEMAIL\tREASON\tIP")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.UTC().Format(time.RFC3339), e.Action, e.Status, e.Email, e.Reason, e.IPAddress)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "only show events for this email")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events")

	return cmd
}
