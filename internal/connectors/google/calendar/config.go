// Package calendar implements the upstream calendar source on the Google
// Calendar API, including the sync token cursor and event normalisation.
package calendar

import "time"

// The initial pull is deliberately bounded: full unbounded history is never
// fetched. This window is a product bound, not a provider limitation.
const (
	// InitialWindowPast is how far back the initial pull reaches.
	InitialWindowPast = 30 * 24 * time.Hour

	// InitialWindowFuture is how far forward the initial pull reaches.
	InitialWindowFuture = 365 * 24 * time.Hour
)

// pageSize is the per-request page size for event listing.
const pageSize = 250
