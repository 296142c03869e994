// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"tsforge/internal/lifecycle"
)

var (
	publishPort int
	publishURL  string

	publishCmd = &cobra.Command{
		Use:   "publish:staging",
		Short: "Build and publish the package to a local staging registry",
		Long: `Build and publish the package to a local staging registry.

A disposable registry is started when none is reachable at the target
address. Any previously published copy of the same version is unpublished
first, then the package is built and published with throwaway credentials,
so teammates can install the exact artifact before a real release.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := resolvePkgPath()
			if err != nil {
				return renderError(os.Stderr, err)
			}
			port := publishPort
			if port == 0 {
				port = cfg.Registry.Port
			}
			url := publishURL
			if url == "" {
				url = cfg.Registry.URL
			}
			if err := newManager().PublishStaging(cmd.Context(), lifecycle.PublishOptions{
				PkgDir:      dir,
				Port:        port,
				RegistryURL: url,
			}); err != nil {
				return renderError(os.Stderr, err)
			}
			return nil
		},
	}
)

func init() {
	publishCmd.Flags().IntVar(&publishPort, "port", 0, "staging registry port (default from config)")
	publishCmd.Flags().StringVar(&publishURL, "registry-url", "", "staging registry address (default derived from port)")
}
