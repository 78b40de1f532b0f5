package driving

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// SyncRunner executes reconciliation passes. It is the single entry point
// for both the on-demand "sync now" trigger and the scheduler.
type SyncRunner interface {
	// RunOnce performs one reconciliation pass for a configuration.
	// Expected failure modes (per-event write errors, token expiry,
	// transient provider errors) are reported inside the result, never as
	// a returned error; only setup failures and programming errors return
	// a non-nil error.
	RunOnce(ctx context.Context, configID string) (*domain.SyncRunResult, error)
}
