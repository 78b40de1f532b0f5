package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// ConfigStore persists sync configurations.
type ConfigStore interface {
	// Save stores or updates a configuration.
	Save(ctx context.Context, cfg domain.SyncConfiguration) error

	// Get retrieves a configuration by ID.
	Get(ctx context.Context, id string) (*domain.SyncConfiguration, error)

	// List returns all configurations.
	List(ctx context.Context) ([]domain.SyncConfiguration, error)

	// Delete removes a configuration. Ledger entries cascade.
	Delete(ctx context.Context, id string) error

	// UpdateRunState persists the post-pass fields in one write: cursor,
	// last-synced timestamp, last error and status.
	UpdateRunState(ctx context.Context, id, cursor string, syncedAt time.Time, lastError string, status domain.ConfigStatus) error
}
