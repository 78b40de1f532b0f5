package domain

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"
)

// EventStatus is the upstream lifecycle status of an event.
type EventStatus string

const (
	// EventConfirmed is a normal, scheduled event.
	EventConfirmed EventStatus = "confirmed"
	// EventTentative is a provisionally scheduled event.
	EventTentative EventStatus = "tentative"
	// EventCancelled is a cancelled event. The provider delivers these so
	// that incremental sync can detect deletions.
	EventCancelled EventStatus = "cancelled"
)

// EventTime is either a timed instant or an all-day date.
// Exactly one representation is meaningful: AllDay selects Date over Instant.
type EventTime struct {
	// Instant is the timed start/end, valid when AllDay is false.
	Instant time.Time

	// Date is the all-day date in YYYY-MM-DD form, valid when AllDay is true.
	Date string

	// AllDay indicates this is an all-day boundary.
	AllDay bool
}

// IsZero returns true if neither representation is set.
func (t EventTime) IsZero() bool {
	return !t.AllDay && t.Instant.IsZero()
}

// Effective returns the boundary as a point in time.
// All-day dates resolve to midnight UTC of that date.
func (t EventTime) Effective() time.Time {
	if t.AllDay {
		parsed, err := time.Parse("2006-01-02", t.Date)
		if err != nil {
			return time.Time{}
		}
		return parsed
	}
	return t.Instant
}

// String renders the boundary for hashing and display.
func (t EventTime) String() string {
	if t.AllDay {
		return t.Date
	}
	if t.Instant.IsZero() {
		return ""
	}
	return t.Instant.UTC().Format(time.RFC3339)
}

// Event is the normalised projection of an upstream calendar event.
// It is produced fresh on every pull and never persisted as such; only its
// content hash and destination-facing fields outlive a pass.
type Event struct {
	// ID is the provider's event identifier, unique within a calendar.
	ID string

	// Title is the event summary line.
	Title string

	// Description is the free-form event body.
	Description string

	// Location is the event location text.
	Location string

	// Start and End are the event boundaries.
	Start EventTime
	End   EventTime

	// Attendees holds attendee email addresses. Order is not significant.
	Attendees []string

	// Organizer is the organiser's email address.
	Organizer string

	// Status is the upstream lifecycle status.
	Status EventStatus

	// RecurringEventID links a recurring instance to its parent series.
	RecurringEventID string
}

// ContentHash fingerprints the semantically relevant fields of the event.
// It is the sole mechanism for deciding "skip vs update": two events with
// identical hashed fields always produce identical hashes, and attendee
// order never affects the result.
//
// The hash only needs to support equality comparison, so a 32-bit FNV-1a
// digest rendered as hex is sufficient.
func (e *Event) ContentHash() string {
	attendees := make([]string, len(e.Attendees))
	copy(attendees, e.Attendees)
	sort.Strings(attendees)

	h := fnv.New32a()
	for _, field := range []string{
		e.Title,
		e.Description,
		e.Location,
		e.Start.String(),
		e.End.String(),
		string(e.Status),
		strings.Join(attendees, ","),
	} {
		h.Write([]byte(field))
		h.Write([]byte{0x1f}) // field separator, keeps "a"+"b" distinct from "ab"
	}
	return fmt.Sprintf("%08x", h.Sum32())
}

// IsCancelled returns true if the upstream event was cancelled.
func (e *Event) IsCancelled() bool {
	return e.Status == EventCancelled
}
