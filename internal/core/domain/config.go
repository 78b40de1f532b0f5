package domain

import "time"

// DestinationType identifies a destination variant.
type DestinationType string

const (
	// DestinationSheet writes rows to a Google Sheets spreadsheet.
	DestinationSheet DestinationType = "sheet"
	// DestinationAirtable writes records to an Airtable table.
	DestinationAirtable DestinationType = "airtable"
	// DestinationNotion writes pages to a Notion database.
	DestinationNotion DestinationType = "notion"
)

// Valid reports whether the type tag names a known destination variant.
func (t DestinationType) Valid() bool {
	switch t {
	case DestinationSheet, DestinationAirtable, DestinationNotion:
		return true
	}
	return false
}

// ConfigStatus is the operational state of a sync configuration.
type ConfigStatus string

const (
	// ConfigActive means the configuration syncs on schedule.
	ConfigActive ConfigStatus = "active"
	// ConfigPaused means the configuration is disabled by the user.
	ConfigPaused ConfigStatus = "paused"
	// ConfigError means the last pass failed fatally; the next scheduled
	// run retries from the same cursor.
	ConfigError ConfigStatus = "error"
)

// SyncConfiguration binds one source calendar to one destination.
type SyncConfiguration struct {
	// ID is the unique identifier for the configuration.
	ID string

	// OrgID references the owning organisation.
	OrgID string

	// CalendarID is the source Google calendar.
	CalendarID string

	// CredentialID references the stored credential used for provider calls.
	CredentialID string

	// Destination selects and parameterises the destination variant.
	Destination DestinationRef

	// Status is the operational state.
	Status ConfigStatus

	// FrequencyClass is the plan tier deciding the sync interval.
	FrequencyClass string

	// Cursor is the opaque provider sync token. Empty means no incremental
	// state yet: the next pass performs a bounded full pull.
	Cursor string

	// LastSyncedAt is when the last pass completed.
	LastSyncedAt time.Time

	// LastError holds the last pass's fatal error message, empty on success.
	LastError string

	// Filter optionally restricts which events are in scope.
	Filter *FilterSpec

	// Mapping optionally overrides destination column/property names.
	Mapping *FieldMapping

	// CreatedAt is when the configuration was created.
	CreatedAt time.Time

	// UpdatedAt is when the configuration was last updated.
	UpdatedAt time.Time
}

// DestinationRef identifies a concrete destination instance.
type DestinationRef struct {
	// Type is the destination variant tag.
	Type DestinationType

	// Settings holds variant-specific parameters:
	//   sheet:    spreadsheet_id, sheet_name
	//   airtable: base_id, table_name, api_key_ref
	//   notion:   database_id, token_ref
	Settings map[string]string
}

// Setting returns a destination setting value, or empty string.
func (d DestinationRef) Setting(key string) string {
	return d.Settings[key]
}

// Enabled reports whether the configuration should be scheduled.
func (c *SyncConfiguration) Enabled() bool {
	return c.Status == ConfigActive || c.Status == ConfigError
}

// Due reports whether the configuration is due for a pass at now, given the
// plan-derived interval. Error'd configurations stay on the schedule so the
// next tick retries them from the old cursor.
func (c *SyncConfiguration) Due(now time.Time, interval time.Duration) bool {
	if !c.Enabled() {
		return false
	}
	if c.LastSyncedAt.IsZero() {
		return true
	}
	return !now.Before(c.LastSyncedAt.Add(interval))
}
