package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jandubois/diffcfg/internal/config"
	"github.com/jandubois/diffcfg/internal/diffcfg"
	"github.com/jandubois/diffcfg/internal/logging"
)

// Version is set at build time via -ldflags "-X github.com/jandubois/diffcfg/cmd.Version=..."
var Version = "dev"

// settings is loaded before any subcommand runs.
var settings *config.Config

var rootCmd = &cobra.Command{
	Use:   "diffcfg",
	Short: "Configure the diffcfg active check and build its command line",
	Long: `diffcfg validates and migrates the parameters of the "Config Diff" active
check, which compares a switch's committed configuration with the one
rendered from Netbox, and turns them into the command line of the external
check executable.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "diffcfg version %s\n", Version)
			return nil
		}
		if describe, _ := cmd.Flags().GetBool("describe"); describe {
			return writeJSON(cmd.OutOrStdout(), diffcfg.Describe())
		}
		return cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version and exit")
	rootCmd.Flags().Bool("describe", false, "Output the check parameter description as JSON")

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default $HOME/.config/diffcfg/config.yaml)")
	flags.StringP(config.KeyDatabase, "d", "", "SQLite database path (or DIFFCFG_DATABASE)")
	flags.String(config.KeyCheckPath, "", "Path of the external check executable")
	flags.String(config.KeyTimeout, "", "Timeout of one check run, e.g. 60s")
	flags.String(config.KeyMaxOutput, "", "Check output kept per stream, e.g. 64KiB")
	flags.String(config.KeyLogLevel, "", "Log level (debug, info, warn, error)")
	flags.String(config.KeyLogFormat, "", "Log format (text, json, logfmt)")
}

func loadSettings(cmd *cobra.Command, args []string) error {
	v, err := config.New(cmd.Flags())
	if err != nil {
		return err
	}
	configFile, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(v, configFile); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	settings = cfg
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
