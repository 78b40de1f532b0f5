package driving

import "context"

// Scheduler drives periodic reconciliation of due configurations.
type Scheduler interface {
	// Start runs the scheduler loop until the context is cancelled or
	// Stop is called.
	Start(ctx context.Context) error

	// Stop shuts the scheduler down, waiting for the running pass.
	Stop() error

	// Tick processes the due set once: selects due configurations,
	// capped per invocation, and runs them sequentially. Returns the
	// number of configurations processed.
	Tick(ctx context.Context) int
}
