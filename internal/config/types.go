// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
)

const (
	// ShellVirtual runs toolchain commands in the embedded mvdan/sh
	// interpreter.
	ShellVirtual ShellMode = "virtual"
	// ShellSystem runs toolchain commands through the host shell.
	ShellSystem ShellMode = "system"
)

// ErrInvalidShellMode is returned when a ShellMode value is not recognized.
var ErrInvalidShellMode = errors.New("invalid shell mode")

type (
	// ShellMode selects how external toolchain commands are executed.
	ShellMode string

	// RegistryConfig holds the staging registry settings.
	RegistryConfig struct {
		// URL overrides the derived registry address when set.
		URL string `mapstructure:"url" toml:"url"`
		// Port is the listen port when tsforge starts the registry itself.
		Port int `mapstructure:"port" toml:"port"`
	}

	// WatchConfig holds the rebuild watcher settings.
	WatchConfig struct {
		// DebounceMS is the coalescing window for build watchers, in
		// milliseconds. Manifest-refresh watchers always fire per event.
		DebounceMS int `mapstructure:"debounce_ms" toml:"debounce_ms"`
	}

	// Config is the application configuration.
	Config struct {
		Shell    ShellMode      `mapstructure:"shell" toml:"shell"`
		Verbose  bool           `mapstructure:"verbose" toml:"verbose"`
		Registry RegistryConfig `mapstructure:"registry" toml:"registry"`
		Watch    WatchConfig    `mapstructure:"watch" toml:"watch"`
	}
)

// Validate reports whether the mode is one of the known values.
func (m ShellMode) Validate() error {
	switch m {
	case ShellVirtual, ShellSystem:
		return nil
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidShellMode, m, ShellVirtual, ShellSystem)
	}
}

// Validate checks every constrained field.
func (c *Config) Validate() error {
	if err := c.Shell.Validate(); err != nil {
		return err
	}
	if c.Registry.Port <= 0 || c.Registry.Port > 65535 {
		return fmt.Errorf("invalid registry port %d", c.Registry.Port)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("invalid watch debounce %dms", c.Watch.DebounceMS)
	}
	return nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Shell:   ShellVirtual,
		Verbose: false,
		Registry: RegistryConfig{
			Port: 4873,
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}
