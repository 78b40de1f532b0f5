package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// SourceFactory builds the upstream calendar source for a configuration,
// resolving the credential's TokenProvider internally.
type SourceFactory interface {
	// Create returns a CalendarSource bound to the configuration's
	// calendar and credential.
	Create(ctx context.Context, cfg *domain.SyncConfiguration) (CalendarSource, error)
}
