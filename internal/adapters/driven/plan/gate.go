// Package plan maps plan tiers to sync intervals. It only decides whether
// a configuration is due; reconciliation never consults it.
package plan

import (
	"time"

	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// DefaultInterval is used for unknown frequency classes.
const DefaultInterval = 24 * time.Hour

// intervals maps frequency classes to the minimum time between passes.
var intervals = map[string]time.Duration{
	"free":     24 * time.Hour,
	"standard": 1 * time.Hour,
	"pro":      15 * time.Minute,
}

// Ensure Gate implements the interface.
var _ driven.PlanGate = (*Gate)(nil)

// Gate is a static plan/quota gate.
type Gate struct{}

// NewGate creates a plan gate with the built-in tier table.
func NewGate() *Gate {
	return &Gate{}
}

// IntervalFor returns the sync interval for a frequency class.
func (g *Gate) IntervalFor(frequencyClass string) time.Duration {
	if interval, ok := intervals[frequencyClass]; ok {
		return interval
	}
	return DefaultInterval
}
