package domain

import "time"

// SyncRunResult summarises one reconciliation pass.
type SyncRunResult struct {
	// ConfigID identifies the configuration that was synced.
	ConfigID string

	// Created, Updated and Deleted count destination writes that succeeded.
	Created int
	Updated int
	Deleted int

	// NewCursor is the provider sync token to resume from, if any.
	NewCursor string

	// FullResync is true when the pass fell back to a bounded full pull
	// because the stored token had expired. This is a state transition,
	// not an error.
	FullResync bool

	// Errors holds per-item failure messages. A non-empty list does not
	// mean the pass failed; the failed items retry on the next pass.
	Errors []string
}

// HasErrors reports whether any item-level failures occurred.
func (r *SyncRunResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// SyncRun is one persisted history entry for a reconciliation pass.
type SyncRun struct {
	// ID is the unique identifier for the history entry.
	ID string

	// ConfigID identifies the configuration.
	ConfigID string

	// StartedAt and EndedAt bound the pass.
	StartedAt time.Time
	EndedAt   time.Time

	// Created, Updated and Deleted are the pass counts.
	Created int
	Updated int
	Deleted int

	// FullResync records whether a token-expiry fallback occurred.
	FullResync bool

	// Error is the fatal error message, empty if the pass completed.
	Error string

	// ItemErrors is the number of per-item failures.
	ItemErrors int
}
