package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// FilterSpec restricts which events are in scope for a sync configuration.
// A nil spec matches everything.
type FilterSpec struct {
	// Start and End bound the event's effective start time, inclusive.
	// Zero values leave that side unbounded.
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`

	// Keywords restrict matches to events whose title contains at least one
	// keyword, case-insensitively. An empty list imposes no restriction.
	Keywords []string `json:"keywords,omitempty"`
}

// Matches reports whether the event is in scope for this filter.
// The end boundary is inclusive of the entire end date: an event starting
// at any time on the End day still matches.
func (f *FilterSpec) Matches(e *Event) bool {
	if f == nil {
		return true
	}

	start := e.Start.Effective()
	if start.IsZero() {
		start = e.End.Effective()
	}

	if !f.Start.IsZero() && start.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() {
		// Extend the boundary to the end of the End day.
		endOfDay := time.Date(f.End.Year(), f.End.Month(), f.End.Day(),
			23, 59, 59, int(time.Second-time.Nanosecond), f.End.Location())
		if start.After(endOfDay) {
			return false
		}
	}

	if len(f.Keywords) > 0 {
		title := strings.ToLower(e.Title)
		matched := false
		for _, kw := range f.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(title, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// ParseFilterSpec decodes a stored JSON filter blob.
// Malformed or empty text yields a nil spec (no filtering), never an error:
// a broken stored filter must not break the sync it is attached to.
func ParseFilterSpec(raw string) *FilterSpec {
	if raw == "" || raw == "null" {
		return nil
	}
	var spec FilterSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil
	}
	if spec.Start.IsZero() && spec.End.IsZero() && len(spec.Keywords) == 0 {
		return nil
	}
	return &spec
}

// Encode serialises the filter to its storage representation.
func (f *FilterSpec) Encode() string {
	if f == nil {
		return ""
	}
	data, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return string(data)
}
