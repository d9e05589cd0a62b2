package cmd

import (
	"routeops/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the lease, outbox, delivery and membership tables",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return bootstrap.Migrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
