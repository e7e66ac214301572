package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jandubois/diffcfg/internal/db"
	"github.com/jandubois/diffcfg/internal/launcher"
)

var runCmd = &cobra.Command{
	Use:   "run <host>",
	Short: "Run the external check for a stored rule and print the result",
	Long: `Builds the command line from the stored rule of <host>, runs the check
executable (--check-path) with it, and prints the result as JSON. The
plugin's exit code 0/1/2/3 maps to ok/warning/critical/unknown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store *db.DB) error {
			c, err := buildStoredCommand(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			l := launcher.New(settings.CheckPath, settings.Timeout, settings.MaxOutput)
			result := l.Run(cmd.Context(), c)
			return writeJSON(cmd.OutOrStdout(), result)
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
