package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jandubois/diffcfg/internal/db"
	"github.com/jandubois/diffcfg/internal/diffcfg"
)

// validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Migrate and validate a parameter file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := loadParams(cmd)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), params)
	},
}

// migrate-params command
var migrateParamsCmd = &cobra.Command{
	Use:   "migrate-params",
	Short: "Print a parameter file rewritten into the current format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		raw, err := diffcfg.LoadFile(path)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), diffcfg.MaskedDocument(diffcfg.Migrate(raw)))
	},
}

// command command
var commandCmd = &cobra.Command{
	Use:   "command",
	Short: "Build the check command line for a parameter file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := loadParams(cmd)
		if err != nil {
			return err
		}
		hostname, _ := cmd.Flags().GetString("hostname")
		macroFlags, _ := cmd.Flags().GetStringToString("macro")

		resolver := &storeResolver{path: settings.Database}
		defer resolver.Close()

		host := diffcfg.HostContext{Name: hostname, Macros: macroFlags}
		c, err := diffcfg.Build(cmd.Context(), params, host, resolver)
		if err != nil {
			return err
		}
		return outputCommand(cmd, c)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(migrateParamsCmd)
	rootCmd.AddCommand(commandCmd)

	for _, c := range []*cobra.Command{validateCmd, migrateParamsCmd, commandCmd} {
		c.Flags().StringP("file", "f", "", "Parameter file (YAML or JSON)")
		c.MarkFlagRequired("file")
	}

	commandCmd.Flags().String("hostname", "", "Canonical name of the monitored host")
	commandCmd.Flags().StringToString("macro", nil, "Host macro, e.g. --macro '$HOSTADDRESS$=10.0.0.1' (repeatable)")
	commandCmd.Flags().Bool("show-secrets", false, "Print tokens in clear text")
}

func loadParams(cmd *cobra.Command) (*diffcfg.ParameterSet, error) {
	path, _ := cmd.Flags().GetString("file")
	raw, err := diffcfg.LoadFile(path)
	if err != nil {
		return nil, err
	}
	params, err := diffcfg.MigrateAndValidate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return params, nil
}

// outputCommand prints the command, masking tokens unless --show-secrets is set.
func outputCommand(cmd *cobra.Command, c *diffcfg.Command) error {
	if show, _ := cmd.Flags().GetBool("show-secrets"); show {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"service_description": c.ServiceDescription,
			"arguments":           c.Arguments,
		})
	}
	return writeJSON(cmd.OutOrStdout(), c)
}

// storeResolver opens the password store on first use, so commands that only
// use literal secrets never touch the database.
type storeResolver struct {
	path string

	once sync.Once
	db   *db.DB
	err  error
}

func (r *storeResolver) ResolvePassword(ctx context.Context, id string) (string, error) {
	r.once.Do(func() {
		slog.Debug("opening password store", "database", r.path)
		r.db, r.err = db.Open(ctx, r.path)
	})
	if r.err != nil {
		return "", r.err
	}
	return r.db.ResolvePassword(ctx, id)
}

func (r *storeResolver) Close() {
	if r.db != nil {
		r.db.Close()
	}
}
