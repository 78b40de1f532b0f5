package domain

import "time"

// RecordStatus is the lifecycle status of a ledger entry.
type RecordStatus string

const (
	// RecordActive means the event is present at the destination.
	RecordActive RecordStatus = "active"
	// RecordCancelled means the destination record was (or should be)
	// removed. Cancelled entries are retained so destination deletes can
	// be retried idempotently; cleanup hard-deletes them later.
	RecordCancelled RecordStatus = "cancelled"
)

// Locator addresses a previously written record at its destination.
// Exactly one field is populated, depending on the destination type.
type Locator struct {
	// RowNumber is the 1-based sheet row (sheet destinations).
	RowNumber int64 `json:"row,omitempty"`

	// RecordID is the table record id (airtable destinations).
	RecordID string `json:"record_id,omitempty"`

	// PageID is the document page id (notion destinations).
	PageID string `json:"page_id,omitempty"`
}

// IsZero reports whether no locator field is populated.
func (l Locator) IsZero() bool {
	return l.RowNumber == 0 && l.RecordID == "" && l.PageID == ""
}

// SyncedEventRecord is the ledger entry mapping an upstream event to its
// destination record. At most one active record exists per
// (configuration, event id) pair.
type SyncedEventRecord struct {
	// ID is the unique identifier for the ledger entry.
	ID string

	// ConfigID references the owning SyncConfiguration.
	ConfigID string

	// EventID is the upstream event identifier, unique per configuration.
	EventID string

	// Locator addresses the destination record.
	Locator Locator

	// ContentHash is the hash of the last state applied to the destination.
	ContentHash string

	// Status is the lifecycle status.
	Status RecordStatus

	// LastSyncedAt is when this entry was last written.
	LastSyncedAt time.Time
}
