package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

// commands for inspecting the effective configuration
//
// - show: every key after defaults, file, env and flags are merged
// - path: the config file in use, if any

func NewConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := app.v.AllSettings()
			// the cookie carries session credentials
			if app.Config.Cookie != "" {
				settings["cookie"] = "<redacted>"
			}
			return writeYAML(cmd.OutOrStdout(), settings)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.v.ConfigFileUsed()
			if path == "" {
				path = "(none)"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	})

	return cmd
}
