package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// RunHistoryStore persists one audit entry per reconciliation pass.
type RunHistoryStore interface {
	// Record logs a completed pass.
	Record(ctx context.Context, run domain.SyncRun) error

	// ListByConfig returns recent runs for a configuration, most recent
	// first, up to limit.
	ListByConfig(ctx context.Context, configID string, limit int) ([]domain.SyncRun, error)

	// Prune removes old runs beyond the retention limit, keeping the most
	// recent 'keep' runs per configuration.
	Prune(ctx context.Context, keep int) error
}
