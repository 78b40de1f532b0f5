package domain

import "encoding/json"

// Standard event field names used as mapping keys.
// Destinations render these fields into their native column/property model.
const (
	FieldEventID     = "event_id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldStart       = "start"
	FieldEnd         = "end"
	FieldStatus      = "status"
	FieldAttendees   = "attendees"
	FieldOrganizer   = "organizer"
)

// DefaultColumnNames maps event fields to their default destination labels.
var DefaultColumnNames = map[string]string{
	FieldEventID:     "Event ID",
	FieldTitle:       "Title",
	FieldDescription: "Description",
	FieldLocation:    "Location",
	FieldStart:       "Start",
	FieldEnd:         "End",
	FieldStatus:      "Status",
	FieldAttendees:   "Attendees",
	FieldOrganizer:   "Organizer",
}

// FieldOrder is the canonical field ordering for columnar destinations.
var FieldOrder = []string{
	FieldEventID, FieldTitle, FieldDescription, FieldLocation,
	FieldStart, FieldEnd, FieldStatus, FieldAttendees, FieldOrganizer,
}

// FieldMapping overrides destination column/property names per event field.
// A nil mapping uses the defaults.
type FieldMapping struct {
	// Columns maps event field names (FieldTitle, ...) to destination labels.
	Columns map[string]string `json:"columns,omitempty"`
}

// ColumnFor returns the destination label for an event field.
func (m *FieldMapping) ColumnFor(field string) string {
	if m != nil {
		if label, ok := m.Columns[field]; ok && label != "" {
			return label
		}
	}
	return DefaultColumnNames[field]
}

// ParseFieldMapping decodes a stored JSON mapping blob.
// Malformed or empty text yields a nil mapping (defaults), never an error.
func ParseFieldMapping(raw string) *FieldMapping {
	if raw == "" || raw == "null" {
		return nil
	}
	var m FieldMapping
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	if len(m.Columns) == 0 {
		return nil
	}
	return &m
}

// Encode serialises the mapping to its storage representation.
func (m *FieldMapping) Encode() string {
	if m == nil {
		return ""
	}
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}
