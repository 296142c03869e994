// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	devWatch bool

	devCmd = &cobra.Command{
		Use:   "dev [path...]",
		Short: "Switch package manifests to development shape",
		Long: `Switch package manifests to development shape.

With no arguments the package at --path is reverted. Multiple package
directories can be given to revert a whole workspace in one call; every
package is processed even when some fail. With --watch, tsforge keeps
running and re-reverts a package whenever its sources or manifest change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := resolveDevPaths(args)
			if err != nil {
				return renderError(os.Stderr, err)
			}
			if err := newManager().Dev(cmd.Context(), dirs, devWatch); err != nil {
				return renderError(os.Stderr, err)
			}
			if !devWatch {
				for _, dir := range dirs {
					fmt.Println(SuccessStyle.Render("✓") + " dev " + PathStyle.Render(dir))
				}
			}
			return nil
		},
	}
)

func init() {
	devCmd.Flags().BoolVarP(&devWatch, "watch", "w", false, "keep watching and re-revert on change")
}

// resolveDevPaths absolutizes the positional package paths, falling back to
// the --path flag when none are given.
func resolveDevPaths(args []string) ([]string, error) {
	if len(args) == 0 {
		dir, err := resolvePkgPath()
		if err != nil {
			return nil, err
		}
		return []string{dir}, nil
	}
	dirs := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}
