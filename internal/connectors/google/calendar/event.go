package calendar

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// NormalizeEvent converts a Google Calendar event into the domain
// projection. Only the fields the sync engine cares about survive.
func NormalizeEvent(ev *calendar.Event) domain.Event {
	out := domain.Event{
		ID:               ev.Id,
		Title:            ev.Summary,
		Description:      ev.Description,
		Location:         ev.Location,
		Start:            normalizeTime(ev.Start),
		End:              normalizeTime(ev.End),
		Status:           normalizeStatus(ev.Status),
		RecurringEventID: ev.RecurringEventId,
	}

	for _, a := range ev.Attendees {
		if a.Email != "" {
			out.Attendees = append(out.Attendees, a.Email)
		}
	}
	if ev.Organizer != nil { //nolint:misspell // Google API field name
		out.Organizer = ev.Organizer.Email //nolint:misspell // Google API field name
	}

	return out
}

// normalizeTime maps an EventDateTime to the domain's timed-or-all-day form.
func normalizeTime(edt *calendar.EventDateTime) domain.EventTime {
	if edt == nil {
		return domain.EventTime{}
	}
	if edt.DateTime != "" {
		if instant, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return domain.EventTime{Instant: instant}
		}
		return domain.EventTime{}
	}
	if edt.Date != "" {
		return domain.EventTime{AllDay: true, Date: edt.Date}
	}
	return domain.EventTime{}
}

// normalizeStatus maps provider status strings onto the domain enum.
// Unknown statuses are treated as confirmed rather than dropped.
func normalizeStatus(status string) domain.EventStatus {
	switch status {
	case "cancelled":
		return domain.EventCancelled
	case "tentative":
		return domain.EventTentative
	default:
		return domain.EventConfirmed
	}
}

// shouldInclude filters out events the engine cannot key on.
func shouldInclude(ev *calendar.Event) bool {
	return ev != nil && ev.Id != ""
}
