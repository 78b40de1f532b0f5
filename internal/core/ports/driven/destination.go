package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// PlannedWrite is one event the engine wants present at the destination.
type PlannedWrite struct {
	// Event is the normalised event to render.
	Event domain.Event

	// Locator addresses the existing destination record for updates.
	// Zero for creates; the destination's index decides the final verb.
	Locator domain.Locator
}

// PushResult reports the outcome of one Push batch.
type PushResult struct {
	// Created and Updated count writes that succeeded.
	Created int
	Updated int

	// Locators maps event id to the destination locator for every event
	// that was successfully created or updated.
	Locators map[string]domain.Locator

	// Errors holds per-event failure messages. A failed event is absent
	// from Locators and retries on the next pass.
	Errors []string
}

// Destination translates normalised events into destination-native writes.
// Implementations are selected by the configuration's destination type tag
// and exist for sheets, table-row stores and document databases.
//
// All operations must be idempotent: Push decides create-vs-update from the
// index built by BuildIndex, and DeleteMany silently ignores ids that are
// already gone.
type Destination interface {
	// Type returns the destination type tag.
	Type() domain.DestinationType

	// Validate checks the destination exists and is writable.
	Validate(ctx context.Context) error

	// BuildIndex scans the destination for previously written records and
	// returns a mapping from upstream event id to locator. It provisions
	// missing structure (header row, required fields or properties) as an
	// idempotent ensure-schema step. Must be called once per pass before
	// any writes.
	BuildIndex(ctx context.Context) (map[string]domain.Locator, error)

	// Push creates or updates one batch of events. One event's failure
	// must not abort the batch; failures accumulate in the result.
	Push(ctx context.Context, writes []PlannedWrite) (*PushResult, error)

	// DeleteMany removes or archives the destination records for the given
	// upstream event ids. Ids absent from the index are silently ignored.
	// Returns the number of records actually removed.
	DeleteMany(ctx context.Context, eventIDs []string) (int, error)
}

// DestinationBuilder constructs a Destination for a configuration.
type DestinationBuilder func(ctx context.Context, cfg *domain.SyncConfiguration) (Destination, error)

// DestinationFactory resolves the destination variant for a configuration.
// It maintains a registry of type tags and their builders, so variant
// selection happens once per pass instead of scattered conditionals.
type DestinationFactory interface {
	// Create returns a Destination for the configuration's type tag.
	// Returns domain.ErrUnsupportedType for unknown tags.
	Create(ctx context.Context, cfg *domain.SyncConfiguration) (Destination, error)

	// Register adds a builder for a destination type tag.
	Register(t domain.DestinationType, builder DestinationBuilder)

	// SupportedTypes returns all registered type tags.
	SupportedTypes() []domain.DestinationType
}
