// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for tsforge.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"tsforge/internal/config"
	"tsforge/internal/lifecycle"
	"tsforge/internal/registry"
	"tsforge/internal/toolchain"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// pkgPath is the package directory commands operate on
	pkgPath string

	// cfg is the loaded configuration, populated by initRootConfig.
	cfg = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "tsforge",
		Short: "A build orchestrator for JS/TS library packages",
		Long: TitleStyle.Render("tsforge") + SubtitleStyle.Render(" - A build orchestrator for JS/TS library packages") + `

tsforge wraps the bundler and the type compiler behind a single
manifest-aware workflow. The package.json of a library toggles between a
development shape that points at sources and a production shape that points
at build output, with subpath proxy packages generated for deep imports.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Keep your sources under src/ with an src/index entry point
  2. Point main/module at the cjs/esm output you want built
  3. Run: tsforge build

` + SubtitleStyle.Render("Examples:") + `
  tsforge build             Build and switch package.json to production
  tsforge dev               Switch package.json back to development
  tsforge clean             Revert and remove build output
  tsforge publish:staging   Publish to a disposable local registry`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/tsforge/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&pkgPath, "path", "p", ".", "package directory to operate on")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads the config file and TSFORGE_* environment variables.
func initRootConfig() {
	loaded, err := config.Load(config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		// Config problems never block the run; defaults still apply.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return
	}
	cfg = loaded
	if !verbose {
		verbose = cfg.Verbose
	}
}

// newLogger builds the CLI logger, honoring the verbose flag.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newManager assembles the lifecycle manager from the loaded configuration.
func newManager() *lifecycle.Manager {
	m := lifecycle.New(newLogger())
	m.WatchDebounce = time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
	if cfg.Shell == config.ShellSystem {
		runner := toolchain.SystemRunner{}
		m.Bundler = &toolchain.TsupBundler{Runner: runner, Stdout: os.Stdout, Stderr: os.Stderr}
		m.Types = &toolchain.TscCompiler{Runner: runner, Stdout: os.Stdout, Stderr: os.Stderr}
		m.RegistryOptions = append(m.RegistryOptions, registry.WithRunner(runner))
	}
	return m
}
