package destinations

import (
	"sort"
	"strings"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// FieldValue renders one event field as the flat string columnar
// destinations store. Attendees are sorted so redelivered events with
// reordered attendee lists render identically.
func FieldValue(ev *domain.Event, field string) string {
	switch field {
	case domain.FieldEventID:
		return ev.ID
	case domain.FieldTitle:
		return ev.Title
	case domain.FieldDescription:
		return ev.Description
	case domain.FieldLocation:
		return ev.Location
	case domain.FieldStart:
		return ev.Start.String()
	case domain.FieldEnd:
		return ev.End.String()
	case domain.FieldStatus:
		return string(ev.Status)
	case domain.FieldAttendees:
		attendees := make([]string, len(ev.Attendees))
		copy(attendees, ev.Attendees)
		sort.Strings(attendees)
		return strings.Join(attendees, ", ")
	case domain.FieldOrganizer:
		return ev.Organizer
	}
	return ""
}
