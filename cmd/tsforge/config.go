// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tsforge/internal/config"
)

// configCmd is the `tsforge config` command tree.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tsforge configuration",
	Long: `Manage tsforge configuration.

Configuration is stored in:
  - Linux: ~/.config/tsforge/config.toml
  - macOS: ~/Library/Application Support/tsforge/config.toml
  - Windows: %APPDATA%\tsforge\config.toml

TSFORGE_* environment variables override file values, e.g.
TSFORGE_REGISTRY_PORT=4000.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			out, err := config.Render(cfg)
			if err != nil {
				return renderError(os.Stderr, err)
			}
			fmt.Print(out)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return renderError(os.Stderr, err)
			}
			fmt.Println(SuccessStyle.Render("✓") + " config at " + PathStyle.Render(path))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(_ *cobra.Command, _ []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return renderError(os.Stderr, err)
			}
			fmt.Println(filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})
}
