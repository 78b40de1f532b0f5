package destinations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

type stubDestination struct {
	t domain.DestinationType
}

func (s *stubDestination) Type() domain.DestinationType { return s.t }
func (s *stubDestination) Validate(context.Context) error {
	return nil
}
func (s *stubDestination) BuildIndex(context.Context) (map[string]domain.Locator, error) {
	return nil, nil
}
func (s *stubDestination) Push(context.Context, []driven.PlannedWrite) (*driven.PushResult, error) {
	return &driven.PushResult{}, nil
}
func (s *stubDestination) DeleteMany(context.Context, []string) (int, error) {
	return 0, nil
}

func configFor(t domain.DestinationType) *domain.SyncConfiguration {
	return &domain.SyncConfiguration{
		ID:          "cfg-1",
		Destination: domain.DestinationRef{Type: t},
	}
}

func TestFactoryCreate(t *testing.T) {
	factory := NewFactory()
	factory.Register(domain.DestinationSheet, func(_ context.Context, cfg *domain.SyncConfiguration) (driven.Destination, error) {
		return &stubDestination{t: cfg.Destination.Type}, nil
	})

	dest, err := factory.Create(context.Background(), configFor(domain.DestinationSheet))
	require.NoError(t, err)
	assert.Equal(t, domain.DestinationSheet, dest.Type())
}

func TestFactoryCreateUnknownType(t *testing.T) {
	factory := NewFactory()

	_, err := factory.Create(context.Background(), configFor(domain.DestinationNotion))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestFactorySupportedTypes(t *testing.T) {
	factory := NewFactory()
	builder := func(_ context.Context, cfg *domain.SyncConfiguration) (driven.Destination, error) {
		return &stubDestination{t: cfg.Destination.Type}, nil
	}
	factory.Register(domain.DestinationSheet, builder)
	factory.Register(domain.DestinationAirtable, builder)

	types := factory.SupportedTypes()
	assert.Len(t, types, 2)
	assert.Contains(t, types, domain.DestinationSheet)
	assert.Contains(t, types, domain.DestinationAirtable)
}

func TestFieldValue(t *testing.T) {
	ev := &domain.Event{
		ID:        "ev-1",
		Title:     "Standup",
		Status:    domain.EventConfirmed,
		Attendees: []string{"zoe@example.com", "amy@example.com"},
		Organizer: "amy@example.com",
	}

	assert.Equal(t, "ev-1", FieldValue(ev, domain.FieldEventID))
	assert.Equal(t, "Standup", FieldValue(ev, domain.FieldTitle))
	assert.Equal(t, "confirmed", FieldValue(ev, domain.FieldStatus))
	// Attendees render sorted regardless of upstream order.
	assert.Equal(t, "amy@example.com, zoe@example.com", FieldValue(ev, domain.FieldAttendees))
	assert.Equal(t, "", FieldValue(ev, "unknown_field"))
}

func TestFieldValueDoesNotReorderEvent(t *testing.T) {
	ev := &domain.Event{Attendees: []string{"zoe@example.com", "amy@example.com"}}

	FieldValue(ev, domain.FieldAttendees)

	assert.Equal(t, []string{"zoe@example.com", "amy@example.com"}, ev.Attendees)
}
