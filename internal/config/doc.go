// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with TOML as
// the file format.
//
// Configuration is loaded from ~/.config/tsforge/config.toml (or the XDG
// equivalent on Linux, ~/Library/Application Support/tsforge/config.toml on
// macOS, %APPDATA%\tsforge\config.toml on Windows), with TSFORGE_* environment
// variables overriding file values.
package config
