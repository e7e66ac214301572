package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jandubois/diffcfg/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("down", false, "Roll back all migrations")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	down, _ := cmd.Flags().GetBool("down")

	if down {
		slog.Info("rolling back all migrations", "database", settings.Database)
		if err := db.RollbackMigrations(cmd.Context(), settings.Database); err != nil {
			return err
		}
		slog.Info("migrations rolled back")
		return nil
	}

	slog.Info("running migrations", "database", settings.Database)
	if err := db.RunMigrations(cmd.Context(), settings.Database); err != nil {
		return err
	}
	slog.Info("migrations complete")
	return nil
}
