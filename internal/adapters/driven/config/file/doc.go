// Package file provides the TOML-backed application configuration.
//
// The file lives at ~/.calsync/config.toml by default and holds the
// settings that are not per-sync-configuration state: the data directory,
// provider credentials and destination secrets. Sync configurations
// themselves live in the SQLite store.
package file
