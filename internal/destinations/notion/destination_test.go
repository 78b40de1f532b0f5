package notion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

type fakePages struct {
	created  []*notionapi.PageCreateRequest
	updated  map[notionapi.PageID]*notionapi.PageUpdateRequest
	failIDs  map[notionapi.PageID]bool
	createErr error
	nextID   int
}

func newFakePages() *fakePages {
	return &fakePages{
		updated: make(map[notionapi.PageID]*notionapi.PageUpdateRequest),
		failIDs: make(map[notionapi.PageID]bool),
	}
}

func (f *fakePages) Create(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	f.nextID++
	return &notionapi.Page{ID: notionapi.ObjectID(pageID(f.nextID))}, nil
}

func (f *fakePages) Update(_ context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if f.failIDs[id] {
		return nil, errors.New("validation_error")
	}
	f.updated[id] = req
	return &notionapi.Page{ID: notionapi.ObjectID(id)}, nil
}

type fakeDatabases struct {
	db      *notionapi.Database
	pages   []notionapi.Page
	updates []*notionapi.DatabaseUpdateRequest
	getErr  error
}

func (f *fakeDatabases) Get(context.Context, notionapi.DatabaseID) (*notionapi.Database, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.db, nil
}

func (f *fakeDatabases) Update(_ context.Context, _ notionapi.DatabaseID, req *notionapi.DatabaseUpdateRequest) (*notionapi.Database, error) {
	f.updates = append(f.updates, req)
	return f.db, nil
}

func (f *fakeDatabases) Query(_ context.Context, _ notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	// Two-page pagination when more than queryPageSize/2 entries exist is
	// overkill here; serve everything on one page unless a cursor splits it.
	half := len(f.pages) / 2
	if req.StartCursor == "" && half > 0 {
		return &notionapi.DatabaseQueryResponse{
			Results:    f.pages[:half],
			HasMore:    true,
			NextCursor: "cursor-2",
		}, nil
	}
	start := 0
	if req.StartCursor != "" {
		start = half
	}
	return &notionapi.DatabaseQueryResponse{Results: f.pages[start:]}, nil
}

func pageID(n int) string {
	return string(rune('a'+n-1)) + "-page"
}

func eventIDPage(id, pid string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pid),
		Properties: notionapi.Properties{
			"Event ID": &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: id}},
			},
		},
	}
}

func newTestDestination(pages *fakePages, dbs *fakeDatabases) *Destination {
	if dbs.db == nil {
		dbs.db = &notionapi.Database{Properties: notionapi.PropertyConfigs{
			"Name": notionapi.TitlePropertyConfig{Type: notionapi.PropertyConfigTypeTitle},
		}}
	}
	return &Destination{
		pages:      pages,
		databases:  dbs,
		databaseID: "db-1",
		limiter:    rate.NewLimiter(rate.Inf, 1),
		index:      make(map[string]domain.Locator),
	}
}

func TestBuildIndexPaginatesAndMapsPageIDs(t *testing.T) {
	dbs := &fakeDatabases{pages: []notionapi.Page{
		eventIDPage("ev-1", "p1"),
		eventIDPage("ev-2", "p2"),
		eventIDPage("ev-3", "p3"),
		eventIDPage("", "p4"), // pages without an event id are skipped
	}}
	d := newTestDestination(newFakePages(), dbs)

	index, err := d.BuildIndex(context.Background())
	require.NoError(t, err)

	assert.Len(t, index, 3)
	assert.Equal(t, "p2", index["ev-2"].PageID)
}

func TestBuildIndexEnsuresSchema(t *testing.T) {
	dbs := &fakeDatabases{db: &notionapi.Database{Properties: notionapi.PropertyConfigs{
		"Name":     notionapi.TitlePropertyConfig{Type: notionapi.PropertyConfigTypeTitle},
		"Event ID": notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText},
	}}}
	d := newTestDestination(newFakePages(), dbs)

	_, err := d.BuildIndex(context.Background())
	require.NoError(t, err)

	// Title is resolved to the database's own title property, never added.
	assert.Equal(t, "Name", d.titleLabel)
	require.Len(t, dbs.updates, 1)
	added := dbs.updates[0].Properties
	assert.NotContains(t, added, "Title")
	assert.NotContains(t, added, "Event ID")
	assert.Contains(t, added, "Status")
	assert.Contains(t, added, "Attendees")
	assert.Contains(t, added, "Start")
}

func TestBuildIndexSchemaAlreadyComplete(t *testing.T) {
	props := notionapi.PropertyConfigs{
		"Name": notionapi.TitlePropertyConfig{Type: notionapi.PropertyConfigTypeTitle},
	}
	for _, field := range domain.FieldOrder {
		if field == domain.FieldTitle {
			continue
		}
		props[domain.DefaultColumnNames[field]] = propertyConfigFor(field)
	}
	dbs := &fakeDatabases{db: &notionapi.Database{Properties: props}}
	d := newTestDestination(newFakePages(), dbs)

	_, err := d.BuildIndex(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dbs.updates)
}

func TestPushCreatesAndUpdates(t *testing.T) {
	pages := newFakePages()
	d := newTestDestination(pages, &fakeDatabases{})
	d.titleLabel = "Name"
	d.index["ev-known"] = domain.Locator{PageID: "p-known"}

	result, err := d.Push(context.Background(), []driven.PlannedWrite{
		{Event: domain.Event{ID: "ev-new", Title: "New"}},
		{Event: domain.Event{ID: "ev-known", Title: "Known"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, pages.created, 1)
	assert.Equal(t, notionapi.DatabaseID("db-1"), pages.created[0].Parent.DatabaseID)
	assert.Contains(t, pages.updated, notionapi.PageID("p-known"))
	assert.Equal(t, "a-page", result.Locators["ev-new"].PageID)
	assert.Equal(t, "p-known", result.Locators["ev-known"].PageID)
}

func TestPushFailureIsPerEvent(t *testing.T) {
	pages := newFakePages()
	pages.failIDs["p-bad"] = true
	d := newTestDestination(pages, &fakeDatabases{})
	d.index["ev-bad"] = domain.Locator{PageID: "p-bad"}

	result, err := d.Push(context.Background(), []driven.PlannedWrite{
		{Event: domain.Event{ID: "ev-bad"}},
		{Event: domain.Event{ID: "ev-good"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Updated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ev-bad")
	assert.NotContains(t, result.Locators, "ev-bad")
}

func TestDeleteManyArchivesPages(t *testing.T) {
	pages := newFakePages()
	d := newTestDestination(pages, &fakeDatabases{})
	d.index["ev-1"] = domain.Locator{PageID: "p1"}
	d.index["ev-2"] = domain.Locator{PageID: "p2"}

	count, err := d.DeleteMany(context.Background(), []string{"ev-1", "ev-2", "ev-gone"})
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	require.Contains(t, pages.updated, notionapi.PageID("p1"))
	assert.True(t, pages.updated["p1"].Archived)
	assert.True(t, pages.updated["p2"].Archived)
	assert.Empty(t, d.index)
}

func TestBuildPropertiesTypes(t *testing.T) {
	d := newTestDestination(newFakePages(), &fakeDatabases{})
	d.titleLabel = "Name"

	start := time.Date(2026, 4, 2, 14, 0, 0, 0, time.UTC)
	props := d.buildProperties(&domain.Event{
		ID:        "ev-1",
		Title:     "Review",
		Status:    domain.EventTentative,
		Start:     domain.EventTime{Instant: start},
		Attendees: []string{"zoe@example.com", "amy@example.com"},
	})

	title, ok := props["Name"].(*notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "Review", title.Title[0].Text.Content)

	id, ok := props["Event ID"].(*notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, "ev-1", id.RichText[0].Text.Content)

	date, ok := props["Start"].(*notionapi.DateProperty)
	require.True(t, ok)
	require.NotNil(t, date.Date)
	assert.Equal(t, start, time.Time(*date.Date.Start))

	// End is unset, rendered as an empty date property.
	end, ok := props["End"].(*notionapi.DateProperty)
	require.True(t, ok)
	assert.Nil(t, end.Date)

	status, ok := props["Status"].(*notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "tentative", status.Select.Name)

	multi, ok := props["Attendees"].(*notionapi.MultiSelectProperty)
	require.True(t, ok)
	require.Len(t, multi.MultiSelect, 2)
	assert.Equal(t, "amy@example.com", multi.MultiSelect[0].Name)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "ev-1", plainText(&notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{PlainText: "ev-1"}},
	}))
	assert.Equal(t, "fallback", plainText(&notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: "fallback"}}},
	}))
	assert.Equal(t, "a title", plainText(&notionapi.TitleProperty{
		Title: []notionapi.RichText{{PlainText: "a title"}},
	}))
	assert.Equal(t, "", plainText(nil))
	assert.Equal(t, "", plainText(&notionapi.SelectProperty{}))
}

func TestValidateReportsGoneDatabase(t *testing.T) {
	dbs := &fakeDatabases{getErr: errors.New("object_not_found")}
	d := newTestDestination(newFakePages(), dbs)

	err := d.Validate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDestinationGone)
}
