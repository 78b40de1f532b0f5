package driven

import (
	"context"
	"time"
)

// LeaseStore provides durable mutual exclusion via expiring claim rows.
//
// Two concerns use it: no two concurrent passes may run for the same sync
// configuration, and credential refreshes must be serialised per credential.
// A durable claim works for both single-process and multi-worker schedulers,
// unlike a process-global lock map.
type LeaseStore interface {
	// Acquire claims the named lease for ttl. Returns false if another
	// holder has an unexpired claim.
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)

	// Release drops the lease if held by holder.
	Release(ctx context.Context, name, holder string) error
}
