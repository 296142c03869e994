// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	buildWatch bool

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build the package and switch its manifest to production shape",
		Long: `Build the package and switch its manifest to production shape.

The build reverts the manifest to development shape first, compiles type
declarations when a types field and a tsconfig are present, bundles every
configured format, regenerates subpath proxy packages, and finally rewrites
package.json to point at the build output. Any failure reverts the manifest
back to development shape.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := resolvePkgPath()
			if err != nil {
				return renderError(os.Stderr, err)
			}
			m := newManager()
			if buildWatch {
				if err := m.BuildWatch(cmd.Context(), dir); err != nil {
					return renderError(os.Stderr, err)
				}
				return nil
			}
			if err := m.Build(cmd.Context(), dir); err != nil {
				return renderError(os.Stderr, err)
			}
			fmt.Println(SuccessStyle.Render("✓") + " built " + PathStyle.Render(dir))
			return nil
		},
	}
)

func init() {
	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "rebuild on source changes")
}

// resolvePkgPath turns the --path flag into an absolute package directory.
func resolvePkgPath() (string, error) {
	return filepath.Abs(pkgPath)
}
