package calendar

import (
	"context"
	"fmt"
	"time"

	calapi "google.golang.org/api/calendar/v3"

	"github.com/custodia-labs/calsync/internal/connectors/google"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.CalendarSource = (*Source)(nil)

// Source pulls events for one calendar through the Google Calendar API.
type Source struct {
	svc        *calapi.Service
	calendarID string
	limiter    *google.RateLimiter
	now        func() time.Time
}

// NewSource creates a calendar source for a calendar ID.
func NewSource(svc *calapi.Service, calendarID string) *Source {
	return &Source{
		svc:        svc,
		calendarID: calendarID,
		limiter:    google.NewRateLimiter(google.ServiceCalendar),
		now:        time.Now,
	}
}

// Validate checks the calendar is reachable with current credentials.
func (s *Source) Validate(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.svc.Calendars.Get(s.calendarID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("calendar %s: %w", s.calendarID, google.WrapError(err))
	}
	return nil
}

// Pull fetches all changes after the given sync token, exhausting intra-call
// pagination before returning. An empty token requests the bounded initial
// window. A stale token surfaces driven.ErrSyncTokenExpired; the caller owns
// the single full-pull retry.
func (s *Source) Pull(ctx context.Context, syncToken string) (*driven.PullResult, error) {
	result := &driven.PullResult{}
	pageToken := ""

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Events.List(s.calendarID).
			MaxResults(pageSize).
			SingleEvents(true). // expand recurring series into instances
			ShowDeleted(true).  // cancelled events drive deletion tracking
			Context(ctx)

		if syncToken != "" {
			call = call.SyncToken(syncToken)
		} else {
			now := s.now()
			call = call.
				TimeMin(now.Add(-InitialWindowPast).Format(time.RFC3339)).
				TimeMax(now.Add(InitialWindowFuture).Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			wrapped := google.WrapError(err)
			if google.IsRateLimited(wrapped) {
				s.limiter.RecordRateLimitError(0)
			}
			return nil, fmt.Errorf("list events for %s: %w", s.calendarID, wrapped)
		}

		for _, item := range page.Items {
			if !shouldInclude(item) {
				continue
			}
			result.Events = append(result.Events, NormalizeEvent(item))
		}

		if page.NextPageToken == "" {
			result.NextToken = page.NextSyncToken
			break
		}
		pageToken = page.NextPageToken
	}

	logger.Debug("Pulled %d events from calendar %s", len(result.Events), s.calendarID)
	return result, nil
}
