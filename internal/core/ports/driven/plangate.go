package driven

import "time"

// PlanGate supplies the sync interval for a plan tier. It decides only
// whether a configuration is due; it plays no part in reconciliation.
type PlanGate interface {
	// IntervalFor returns the minimum time between passes for a frequency
	// class. Unknown classes get a conservative default.
	IntervalFor(frequencyClass string) time.Duration
}
