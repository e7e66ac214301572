package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jandubois/diffcfg/internal/db"
)

var passwordsCmd = &cobra.Command{
	Use:   "passwords",
	Short: "Manage stored passwords referenced by rules",
}

var passwordsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a password and print its id",
	Long: `Store a password and print its id. Reference it from a rule as

  netbox_token: {kind: reference, id: <id>}

The value is read from the terminal without echo, or from standard input.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		value, err := readPassword(cmd)
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(store *db.DB) error {
			id, err := store.AddPassword(cmd.Context(), title, value)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var passwordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored passwords",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store *db.DB) error {
			passwords, err := store.ListPasswords(cmd.Context())
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"ID", "TITLE", "CREATED"})
			for _, p := range passwords {
				created := ""
				if p.CreatedAt.Valid {
					created = p.CreatedAt.Time.Format("2006-01-02 15:04")
				}
				t.AppendRow(table.Row{p.ID, p.Title, created})
			}
			t.Render()
			return nil
		})
	},
}

var passwordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store *db.DB) error {
			return store.DeletePassword(cmd.Context(), args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(passwordsCmd)
	passwordsCmd.AddCommand(passwordsAddCmd, passwordsListCmd, passwordsDeleteCmd)

	passwordsAddCmd.Flags().String("title", "", "Human readable title")
}

func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(data), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
