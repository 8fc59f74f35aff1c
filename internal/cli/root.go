// Package cli implements the clubhouse command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/clubhouse/internal/config"
	"github.com/mrlokans/clubhouse/internal/entrypoint"
)

// loadConfig is replaced in tests.
var loadConfig = config.NewConfig

// serveFunc is replaced in tests.
var serveFunc = entrypoint.Run

// NewRootCmd creates the root command. Without a subcommand it serves HTTP.
func NewRootCmd(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clubhouse",
		Short:   "Members-only web app with server-side sessions",
		Version: version + " (" + commit + ")",
		Long: `clubhouse serves a small members area: visitors sign up or log in,
and logged-in members see a random picture. Configuration is read from the
environment and an optional .env file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveFunc(loadConfig(), version)
		},
	}

	cmd.AddCommand(NewServeCmd(version))
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPurgeSessionsCmd())
	cmd.AddCommand(NewAuditCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveFunc(loadConfig(), version)
		},
	}
}
