package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates the tables of the configured databases if they don't exist.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// opening applies every schema
		dbs, err := openDatabases(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		dbs.Close()
		slog.Info("migrated", "driver", cfg.Database.Driver)
		return nil
	},
}
