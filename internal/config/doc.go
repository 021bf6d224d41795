// Package config loads, defaults, normalizes, and validates the TOML
// configuration consumed by every fstack subcommand.
//
// Load resolves the config path (explicit flag, ~/.config/fstack/config.toml,
// or ./fstack.toml), merges the file over Default(), expands ~ in path fields,
// and validates. Validation failures carry services.ErrConfiguration and abort
// before any file is touched.
package config
