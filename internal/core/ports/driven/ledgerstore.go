package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// LedgerStore persists the synced-event ledger: the durable mapping from
// (configuration, upstream event id) to destination locator and last-applied
// content hash.
//
// Upsert is the single write path. Concurrent passes for different
// configurations are independent; same-configuration passes are excluded by
// the engine's lease, so implementations need no per-key coordination.
type LedgerStore interface {
	// ListByConfig returns all ledger entries for a configuration.
	ListByConfig(ctx context.Context, configID string) ([]domain.SyncedEventRecord, error)

	// Get retrieves the entry for (configID, eventID).
	Get(ctx context.Context, configID, eventID string) (*domain.SyncedEventRecord, error)

	// Upsert inserts the record, or updates locator, hash, status and
	// timestamp in place if an entry exists for (ConfigID, EventID).
	Upsert(ctx context.Context, rec domain.SyncedEventRecord) error

	// PruneCancelled hard-deletes cancelled entries for a configuration
	// once their destination deletes are confirmed. Returns the count.
	PruneCancelled(ctx context.Context, configID string) (int, error)

	// DeleteByConfig removes all entries for a configuration (cascade).
	DeleteByConfig(ctx context.Context, configID string) error
}
