package notion

import (
	"sort"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// buildProperties renders an event into the database's typed property
// model: title for the summary, rich text for free-form fields, date for
// boundaries, select for status and multi-select for attendees.
func (d *Destination) buildProperties(ev *domain.Event) notionapi.Properties {
	props := notionapi.Properties{}

	titleLabel := d.titleLabel
	if titleLabel == "" {
		titleLabel = d.mapping.ColumnFor(domain.FieldTitle)
	}
	props[titleLabel] = &notionapi.TitleProperty{
		Title: richText(ev.Title),
	}

	props[d.mapping.ColumnFor(domain.FieldEventID)] = &notionapi.RichTextProperty{
		RichText: richText(ev.ID),
	}
	props[d.mapping.ColumnFor(domain.FieldDescription)] = &notionapi.RichTextProperty{
		RichText: richText(ev.Description),
	}
	props[d.mapping.ColumnFor(domain.FieldLocation)] = &notionapi.RichTextProperty{
		RichText: richText(ev.Location),
	}
	props[d.mapping.ColumnFor(domain.FieldOrganizer)] = &notionapi.RichTextProperty{
		RichText: richText(ev.Organizer),
	}

	props[d.mapping.ColumnFor(domain.FieldStart)] = dateProperty(ev.Start)
	props[d.mapping.ColumnFor(domain.FieldEnd)] = dateProperty(ev.End)

	props[d.mapping.ColumnFor(domain.FieldStatus)] = &notionapi.SelectProperty{
		Select: notionapi.Option{Name: string(ev.Status)},
	}

	attendees := make([]string, len(ev.Attendees))
	copy(attendees, ev.Attendees)
	sort.Strings(attendees)
	options := make([]notionapi.Option, 0, len(attendees))
	for _, email := range attendees {
		options = append(options, notionapi.Option{Name: email})
	}
	props[d.mapping.ColumnFor(domain.FieldAttendees)] = &notionapi.MultiSelectProperty{
		MultiSelect: options,
	}

	return props
}

func richText(s string) []notionapi.RichText {
	if s == "" {
		return []notionapi.RichText{}
	}
	return []notionapi.RichText{{
		Text: &notionapi.Text{Content: s},
	}}
}

func dateProperty(t domain.EventTime) *notionapi.DateProperty {
	if t.IsZero() {
		return &notionapi.DateProperty{}
	}
	date := notionapi.Date(t.Effective())
	return &notionapi.DateProperty{
		Date: &notionapi.DateObject{Start: &date},
	}
}

// propertyConfigFor returns the schema config for a non-title event field.
func propertyConfigFor(field string) notionapi.PropertyConfig {
	switch field {
	case domain.FieldStart, domain.FieldEnd:
		return notionapi.DatePropertyConfig{Type: notionapi.PropertyConfigTypeDate}
	case domain.FieldStatus:
		return notionapi.SelectPropertyConfig{Type: notionapi.PropertyConfigTypeSelect}
	case domain.FieldAttendees:
		return notionapi.MultiSelectPropertyConfig{Type: notionapi.PropertyConfigTypeMultiSelect}
	default:
		return notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText}
	}
}

// plainText extracts the flat text of a title or rich text property, as
// returned by a database query.
func plainText(prop notionapi.Property) string {
	var parts []notionapi.RichText
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		parts = p.RichText
	case *notionapi.TitleProperty:
		parts = p.Title
	default:
		return ""
	}

	var b strings.Builder
	for _, part := range parts {
		if part.PlainText != "" {
			b.WriteString(part.PlainText)
		} else if part.Text != nil {
			b.WriteString(part.Text.Content)
		}
	}
	return b.String()
}
