package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jandubois/diffcfg/internal/db"
	"github.com/jandubois/diffcfg/internal/diffcfg"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage stored diffcfg rules",
}

var rulesSetCmd = &cobra.Command{
	Use:   "set <host>",
	Short: "Validate a parameter file and store it as the rule for a host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host := args[0]
		path, _ := cmd.Flags().GetString("file")
		macroFlags, _ := cmd.Flags().GetStringToString("macro")

		raw, err := diffcfg.LoadFile(path)
		if err != nil {
			return err
		}
		// Invalid parameters are never saved.
		if _, err := diffcfg.MigrateAndValidate(raw); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		params, _ := raw.(map[string]any)

		return withStore(cmd.Context(), func(store *db.DB) error {
			rule := &db.Rule{Host: host, Params: params}
			if len(macroFlags) > 0 {
				rule.Macros = macroFlags
			}
			if err := store.SaveRule(cmd.Context(), rule); err != nil {
				return err
			}
			slog.Info("rule saved", "host", host)
			return nil
		})
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <host>",
	Short: "Show the migrated parameters of a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store *db.DB) error {
			rule, err := store.GetRule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"host":       rule.Host,
				"params":     diffcfg.MaskedDocument(diffcfg.Migrate(map[string]any(rule.Params))),
				"macros":     rule.Macros,
				"created_at": rule.CreatedAt,
				"updated_at": rule.UpdatedAt,
			})
		})
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules and whether their parameters are valid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store *db.DB) error {
			rules, err := store.ListRules(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"HOST", "STATUS", "UPDATED"})
			for _, rule := range rules {
				status := "valid"
				if _, err := diffcfg.MigrateAndValidate(map[string]any(rule.Params)); err != nil {
					status = "misconfigured: " + err.Error()
				}
				updated := ""
				if rule.UpdatedAt.Valid {
					updated = rule.UpdatedAt.Time.Format("2006-01-02 15:04")
				}
				t.AppendRow(table.Row{rule.Host, status, updated})
			}
			t.Render()
			return nil
		})
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <host>",
	Short: "Delete the rule of a host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store *db.DB) error {
			return store.DeleteRule(cmd.Context(), args[0])
		})
	},
}

var rulesCommandCmd = &cobra.Command{
	Use:   "command <host>",
	Short: "Build the check command line from a stored rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store *db.DB) error {
			c, err := buildStoredCommand(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			return outputCommand(cmd, c)
		})
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesSetCmd, rulesShowCmd, rulesListCmd, rulesDeleteCmd, rulesCommandCmd)

	rulesSetCmd.Flags().StringP("file", "f", "", "Parameter file (YAML or JSON)")
	rulesSetCmd.MarkFlagRequired("file")
	rulesSetCmd.Flags().StringToString("macro", nil, "Host macro stored with the rule (repeatable)")

	rulesCommandCmd.Flags().Bool("show-secrets", false, "Print tokens in clear text")
}

// withStore opens the configuration store for the duration of fn.
func withStore(ctx context.Context, fn func(store *db.DB) error) error {
	store, err := db.Open(ctx, settings.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// buildStoredCommand loads, migrates and validates the rule of host and
// builds its command, resolving stored passwords from the same store.
func buildStoredCommand(ctx context.Context, store *db.DB, host string) (*diffcfg.Command, error) {
	rule, err := store.GetRule(ctx, host)
	if err != nil {
		return nil, err
	}
	params, err := diffcfg.MigrateAndValidate(map[string]any(rule.Params))
	if err != nil {
		slog.Warn("rule is misconfigured", "host", host, "error", err)
		return nil, fmt.Errorf("rule %s: %w", host, err)
	}
	hostCtx := diffcfg.HostContext{Name: rule.Host, Macros: rule.Macros}
	return diffcfg.Build(ctx, params, hostCtx, store)
}
