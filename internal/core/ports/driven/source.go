package driven

import (
	"context"
	"errors"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// ErrSyncTokenExpired signals that the stored sync token is permanently
// invalid (the provider's distinguished "gone" condition, not a generic
// error). The caller must discard the token and retry once with a bounded
// full pull. This is a defined state transition, not a failure.
var ErrSyncTokenExpired = errors.New("sync token expired, full resync required")

// PullResult is the outcome of one exhaustive pull from the source.
type PullResult struct {
	// Events are the normalised events delivered by the pull.
	// For incremental pulls this is only the changed set; cancelled events
	// are included so deletions can be detected.
	Events []domain.Event

	// NextToken is the token to resume from on the next pass. Empty means
	// the provider returned none; callers should retain the previous token
	// rather than dropping cursor tracking.
	NextToken string
}

// CalendarSource pulls events from the upstream calendar provider.
//
// Pull exhausts intra-call pagination before returning; the sync token is
// only the inter-run resume point. An empty token requests the bounded
// initial window (30 days back, one year forward). A stale token yields
// ErrSyncTokenExpired.
type CalendarSource interface {
	// Pull fetches all changes after the given sync token.
	Pull(ctx context.Context, syncToken string) (*PullResult, error)

	// Validate checks the source is reachable with current credentials.
	Validate(ctx context.Context) error
}
