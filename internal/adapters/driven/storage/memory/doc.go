// Package memory provides in-memory implementations of the storage ports.
// They are used in tests and as lightweight defaults before the SQLite
// store is configured.
package memory
