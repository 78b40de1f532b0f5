package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilFilterMatchesEverything(t *testing.T) {
	var f *FilterSpec
	assert.True(t, f.Matches(testEvent()))
}

func TestFilterTimeRange(t *testing.T) {
	f := &FilterSpec{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	inRange := testEvent() // starts 2026-03-10
	assert.True(t, f.Matches(inRange))

	before := testEvent()
	before.Start = EventTime{Instant: time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC)}
	assert.False(t, f.Matches(before))

	after := testEvent()
	after.Start = EventTime{Instant: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	assert.False(t, f.Matches(after))
}

func TestFilterEndOfDayInclusive(t *testing.T) {
	f := &FilterSpec{End: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)}

	lastDay := testEvent()
	lastDay.Start = EventTime{Instant: time.Date(2026, 3, 31, 23, 30, 0, 0, time.UTC)}
	assert.True(t, f.Matches(lastDay), "any time on the end date is in range")

	nextDay := testEvent()
	nextDay.Start = EventTime{Instant: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)}
	assert.False(t, f.Matches(nextDay))
}

func TestFilterAllDayEventUsesDate(t *testing.T) {
	f := &FilterSpec{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	e := testEvent()
	e.Start = EventTime{AllDay: true, Date: "2026-03-15"}
	assert.True(t, f.Matches(e))
}

func TestFilterKeywords(t *testing.T) {
	f := &FilterSpec{Keywords: []string{"standup", "PLANNING"}}

	assert.True(t, f.Matches(testEvent()), "case-insensitive substring match")

	miss := testEvent()
	miss.Title = "1:1 with Dana"
	assert.False(t, f.Matches(miss))

	empty := &FilterSpec{Keywords: []string{}}
	assert.True(t, empty.Matches(miss), "empty keyword list imposes no restriction")
}

func TestParseFilterSpec(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool // non-nil expected
	}{
		{"empty", "", false},
		{"null", "null", false},
		{"malformed", "{not json", false},
		{"empty object", "{}", false},
		{"keywords", `{"keywords":["standup"]}`, true},
		{"range", `{"start":"2026-03-01T00:00:00Z","end":"2026-03-31T00:00:00Z"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFilterSpec(tt.raw)
			if tt.want {
				assert.NotNil(t, got)
			} else {
				assert.Nil(t, got, "malformed text means absent configuration, never a failure")
			}
		})
	}
}

func TestFilterSpecRoundTrip(t *testing.T) {
	f := &FilterSpec{Keywords: []string{"sync"}}
	assert.Equal(t, f.Keywords, ParseFilterSpec(f.Encode()).Keywords)
	assert.Equal(t, "", (*FilterSpec)(nil).Encode())
}

func TestParseFieldMapping(t *testing.T) {
	assert.Nil(t, ParseFieldMapping("{bad"))
	assert.Nil(t, ParseFieldMapping(""))

	m := ParseFieldMapping(`{"columns":{"title":"Summary"}}`)
	assert.Equal(t, "Summary", m.ColumnFor(FieldTitle))
	assert.Equal(t, "Location", m.ColumnFor(FieldLocation), "unmapped fields use defaults")

	var nilMapping *FieldMapping
	assert.Equal(t, "Event ID", nilMapping.ColumnFor(FieldEventID))
}
