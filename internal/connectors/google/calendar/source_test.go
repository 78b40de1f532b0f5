package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// fakeCalendarAPI serves scripted events.list pages and records the query
// parameters of every request.
type fakeCalendarAPI struct {
	t       *testing.T
	pages   []*calapi.Events
	status  int
	queries []url.Values
}

func (f *fakeCalendarAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.queries = append(f.queries, r.URL.Query())

		if f.status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"code":410,"message":"Sync token is no longer valid"}}`))
			return
		}

		require.NotEmpty(f.t, f.pages, "more requests than scripted pages")
		page := f.pages[0]
		f.pages = f.pages[1:]

		w.Header().Set("Content-Type", "application/json")
		require.NoError(f.t, json.NewEncoder(w).Encode(page))
	}
}

func newTestSource(t *testing.T, api *fakeCalendarAPI) *Source {
	t.Helper()

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	svc, err := calapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return NewSource(svc, "primary")
}

func TestPullInitialWindowBounds(t *testing.T) {
	api := &fakeCalendarAPI{t: t, pages: []*calapi.Events{{NextSyncToken: "tok-1"}}}
	src := newTestSource(t, api)
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return fixed }

	result, err := src.Pull(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", result.NextToken)

	require.Len(t, api.queries, 1)
	q := api.queries[0]
	assert.Equal(t, fixed.Add(-InitialWindowPast).Format(time.RFC3339), q.Get("timeMin"),
		"initial pull reaches 30 days back")
	assert.Equal(t, fixed.Add(InitialWindowFuture).Format(time.RFC3339), q.Get("timeMax"),
		"initial pull reaches 365 days forward")
	assert.Equal(t, "true", q.Get("singleEvents"))
	assert.Equal(t, "true", q.Get("showDeleted"))
	assert.Empty(t, q.Get("syncToken"))
}

func TestPullIncrementalSendsTokenWithoutWindow(t *testing.T) {
	api := &fakeCalendarAPI{t: t, pages: []*calapi.Events{{NextSyncToken: "tok-2"}}}
	src := newTestSource(t, api)

	result, err := src.Pull(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", result.NextToken)

	require.Len(t, api.queries, 1)
	q := api.queries[0]
	assert.Equal(t, "tok-1", q.Get("syncToken"))
	assert.Empty(t, q.Get("timeMin"))
	assert.Empty(t, q.Get("timeMax"))
}

func TestPullExhaustsPagination(t *testing.T) {
	api := &fakeCalendarAPI{t: t, pages: []*calapi.Events{
		{
			Items:         []*calapi.Event{{Id: "a", Summary: "One"}},
			NextPageToken: "page-2",
		},
		{
			Items:         []*calapi.Event{{Id: "b", Summary: "Two"}, {Id: ""}},
			NextSyncToken: "tok-1",
		},
	}}
	src := newTestSource(t, api)

	result, err := src.Pull(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, result.Events, 2, "blank-id items are dropped")
	assert.Equal(t, "a", result.Events[0].ID)
	assert.Equal(t, "b", result.Events[1].ID)
	assert.Equal(t, "tok-1", result.NextToken)

	require.Len(t, api.queries, 2)
	assert.Empty(t, api.queries[0].Get("pageToken"))
	assert.Equal(t, "page-2", api.queries[1].Get("pageToken"))

	// The bounded window applies to every page of the initial pull.
	assert.NotEmpty(t, api.queries[1].Get("timeMin"))
	assert.NotEmpty(t, api.queries[1].Get("timeMax"))
}

func TestPullStaleTokenSurfacesExpiry(t *testing.T) {
	api := &fakeCalendarAPI{t: t, status: http.StatusGone}
	src := newTestSource(t, api)

	_, err := src.Pull(context.Background(), "stale")
	assert.ErrorIs(t, err, driven.ErrSyncTokenExpired)
}
