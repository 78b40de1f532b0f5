// Package destinations resolves destination variants behind the single
// Destination capability interface. Variant selection happens once per
// pass through the registry, keyed by the configuration's destination
// type tag.
//
// The variants live in subpackages: sheets (Google Sheets), airtable
// (table rows) and notion (document pages).
package destinations
