package services

import (
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// syncPlan is the partition of one pull into destination operations.
// Every pulled event lands in exactly one bucket.
type syncPlan struct {
	// writes are events to create or update. The destination's index
	// decides the verb, which keeps redelivered creates idempotent.
	writes []driven.PlannedWrite

	// deletes are upstream event ids to retract from the destination.
	deletes []string

	// skipped counts events that needed no action.
	skipped int
}

// classify partitions pulled events against the ledger and filter.
//
// The rules, in order:
//   - cancelled upstream with an active ledger record      -> delete
//   - out of filter scope with an active ledger record     -> delete (retraction)
//   - cancelled or out of scope without an active record   -> skip, no ledger write
//   - no active ledger record                              -> create
//   - active record, hash unchanged                        -> skip
//   - active record, hash changed                          -> update
//
// This is a partition, not two independent passes: the same event id can
// never appear in both writes and deletes.
func classify(
	events []domain.Event,
	records map[string]domain.SyncedEventRecord,
	filter *domain.FilterSpec,
) *syncPlan {
	plan := &syncPlan{}

	for _, ev := range events {
		rec, hasRec := records[ev.ID]
		active := hasRec && rec.Status == domain.RecordActive

		switch {
		case ev.IsCancelled() || !filter.Matches(&ev):
			if active {
				plan.deletes = append(plan.deletes, ev.ID)
			} else {
				plan.skipped++
			}

		case !active:
			plan.writes = append(plan.writes, driven.PlannedWrite{Event: ev})

		case rec.ContentHash == ev.ContentHash():
			plan.skipped++

		default:
			plan.writes = append(plan.writes, driven.PlannedWrite{
				Event:   ev,
				Locator: rec.Locator,
			})
		}
	}

	return plan
}
