// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Revert the manifest and remove build output",
	Long: `Revert the manifest to development shape and remove build output.

The output directories of every configured format and all generated proxy
packages are deleted. Directories that cannot be removed are reported as
warnings; the manifest revert is what decides success.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		dir, err := resolvePkgPath()
		if err != nil {
			return renderError(os.Stderr, err)
		}
		if err := newManager().Clean(dir); err != nil {
			return renderError(os.Stderr, err)
		}
		fmt.Println(SuccessStyle.Render("✓") + " cleaned " + PathStyle.Render(dir))
		return nil
	},
}
