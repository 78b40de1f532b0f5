// Package sheets implements the Google Sheets destination. Events become
// rows on a single sheet, addressed by 1-based row number. Row numbers
// shift when rows are deleted, so the index is rebuilt from the sheet at
// the start of every pass instead of trusting stored locators.
package sheets

import (
	"context"
	"fmt"
	"sort"

	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/calsync/internal/connectors/google"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/destinations"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Settings keys for sheet destinations.
const (
	SettingSpreadsheetID = "spreadsheet_id"
	SettingSheetName     = "sheet_name"
)

// DefaultSheetName is used when the configuration does not name a sheet.
const DefaultSheetName = "Events"

// Ensure Destination implements the interface.
var _ driven.Destination = (*Destination)(nil)

// Destination writes events as rows to one sheet of a spreadsheet.
type Destination struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	sheetName     string
	mapping       *domain.FieldMapping
	limiter       *google.RateLimiter

	// sheetID is the numeric grid id, resolved during BuildIndex and
	// required by the row-deletion batch requests.
	sheetID int64

	// index maps event id to current row number. Maintained across Push
	// and DeleteMany within a pass so appended rows are addressable.
	index map[string]domain.Locator
}

// New creates a sheet destination.
func New(svc *sheetsapi.Service, spreadsheetID, sheetName string, mapping *domain.FieldMapping) *Destination {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &Destination{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		mapping:       mapping,
		limiter:       google.NewRateLimiter(google.ServiceSheets),
		index:         make(map[string]domain.Locator),
	}
}

// TokenProviderResolver resolves the TokenProvider for a stored credential.
type TokenProviderResolver interface {
	ProviderFor(ctx context.Context, credentialID string) (driven.TokenProvider, error)
}

// Builder returns a DestinationBuilder wiring sheet destinations to the
// credential store.
func Builder(tokens TokenProviderResolver) driven.DestinationBuilder {
	return func(ctx context.Context, cfg *domain.SyncConfiguration) (driven.Destination, error) {
		spreadsheetID := cfg.Destination.Setting(SettingSpreadsheetID)
		if spreadsheetID == "" {
			return nil, fmt.Errorf("%w: sheet destination requires %s", domain.ErrInvalidInput, SettingSpreadsheetID)
		}

		provider, err := tokens.ProviderFor(ctx, cfg.CredentialID)
		if err != nil {
			return nil, fmt.Errorf("resolve credential %s: %w", cfg.CredentialID, err)
		}

		svc, err := google.NewSheetsService(ctx, google.NewTokenSource(ctx, provider))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}

		return New(svc, spreadsheetID, cfg.Destination.Setting(SettingSheetName), cfg.Mapping), nil
	}
}

// Type returns the destination type tag.
func (d *Destination) Type() domain.DestinationType {
	return domain.DestinationSheet
}

// Validate checks the spreadsheet exists and is reachable.
func (d *Destination) Validate(ctx context.Context) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := d.svc.Spreadsheets.Get(d.spreadsheetID).Context(ctx).Do()
	if err != nil {
		if google.IsNotFound(err) {
			return fmt.Errorf("%w: spreadsheet %s", domain.ErrDestinationGone, d.spreadsheetID)
		}
		return google.WrapError(err)
	}
	return nil
}

// BuildIndex resolves the grid id, provisions the header row if missing
// and scans the event-id column into the pass index.
func (d *Destination) BuildIndex(ctx context.Context) (map[string]domain.Locator, error) {
	if err := d.resolveSheet(ctx); err != nil {
		return nil, err
	}
	if err := d.ensureHeader(ctx); err != nil {
		return nil, err
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := d.svc.Spreadsheets.Values.Get(d.spreadsheetID, d.idColumnRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read event id column: %w", google.WrapError(err))
	}

	d.index = make(map[string]domain.Locator, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		id, ok := row[0].(string)
		if !ok || id == "" {
			continue
		}
		// Data starts on row 2, below the header.
		d.index[id] = domain.Locator{RowNumber: int64(i + 2)}
	}

	return cloneIndex(d.index), nil
}

// Push writes events as rows, appending new ones and rewriting known ones
// in place. One row's failure does not abort the batch.
func (d *Destination) Push(ctx context.Context, writes []driven.PlannedWrite) (*driven.PushResult, error) {
	result := &driven.PushResult{Locators: make(map[string]domain.Locator)}

	for i := range writes {
		ev := &writes[i].Event
		row := d.renderRow(ev)

		loc, known := d.index[ev.ID]
		var err error
		if known {
			err = d.updateRow(ctx, loc.RowNumber, row)
		} else {
			loc, err = d.appendRow(ctx, row)
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("event %s: %v", ev.ID, err))
			continue
		}

		if known {
			result.Updated++
		} else {
			result.Created++
			d.index[ev.ID] = loc
		}
		result.Locators[ev.ID] = loc
	}

	return result, nil
}

// DeleteMany removes the rows for the given event ids in a single batch.
// Rows are deleted in descending order so earlier deletions do not shift
// the indices of later ones.
func (d *Destination) DeleteMany(ctx context.Context, eventIDs []string) (int, error) {
	rows := make([]int64, 0, len(eventIDs))
	for _, id := range eventIDs {
		if loc, ok := d.index[id]; ok {
			rows = append(rows, loc.RowNumber)
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i] > rows[j] })

	requests := make([]*sheetsapi.Request, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, &sheetsapi.Request{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    d.sheetID,
					Dimension:  "ROWS",
					StartIndex: row - 1, // grid indices are 0-based
					EndIndex:   row,
				},
			},
		})
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	_, err := d.svc.Spreadsheets.BatchUpdate(d.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		d.recordIfRateLimited(err)
		return 0, fmt.Errorf("delete rows: %w", google.WrapError(err))
	}

	for _, id := range eventIDs {
		delete(d.index, id)
	}
	d.reindexAfterDelete(rows)

	return len(rows), nil
}

func (d *Destination) renderRow(ev *domain.Event) []interface{} {
	row := make([]interface{}, 0, len(domain.FieldOrder))
	for _, field := range domain.FieldOrder {
		row = append(row, destinations.FieldValue(ev, field))
	}
	return row
}

func (d *Destination) updateRow(ctx context.Context, row int64, values []interface{}) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := d.svc.Spreadsheets.Values.Update(d.spreadsheetID, d.rowRange(row), &sheetsapi.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		d.recordIfRateLimited(err)
		return google.WrapError(err)
	}
	return nil
}

func (d *Destination) appendRow(ctx context.Context, values []interface{}) (domain.Locator, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return domain.Locator{}, err
	}
	resp, err := d.svc.Spreadsheets.Values.Append(d.spreadsheetID, d.dataRange(), &sheetsapi.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		d.recordIfRateLimited(err)
		return domain.Locator{}, google.WrapError(err)
	}

	if resp.Updates == nil || resp.Updates.UpdatedRange == "" {
		return domain.Locator{}, fmt.Errorf("append response missing updated range")
	}
	row, err := rowFromRange(resp.Updates.UpdatedRange)
	if err != nil {
		return domain.Locator{}, err
	}
	return domain.Locator{RowNumber: row}, nil
}

// resolveSheet finds the named sheet's grid id, creating the sheet when it
// does not exist yet.
func (d *Destination) resolveSheet(ctx context.Context) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	spreadsheet, err := d.svc.Spreadsheets.Get(d.spreadsheetID).Context(ctx).Do()
	if err != nil {
		if google.IsNotFound(err) {
			return fmt.Errorf("%w: spreadsheet %s", domain.ErrDestinationGone, d.spreadsheetID)
		}
		return google.WrapError(err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == d.sheetName {
			d.sheetID = sheet.Properties.SheetId
			return nil
		}
	}

	logger.Debug("Sheet %q not found in %s, creating it", d.sheetName, d.spreadsheetID)
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := d.svc.Spreadsheets.BatchUpdate(d.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: d.sheetName},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create sheet %q: %w", d.sheetName, google.WrapError(err))
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			d.sheetID = reply.AddSheet.Properties.SheetId
		}
	}
	return nil
}

// ensureHeader writes the header row when row 1 is empty. An existing
// header is left untouched even if the labels differ, so user renames
// survive.
func (d *Destination) ensureHeader(ctx context.Context) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := d.svc.Spreadsheets.Values.Get(d.spreadsheetID, d.rowRange(1)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", google.WrapError(err))
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]interface{}, 0, len(domain.FieldOrder))
	for _, field := range domain.FieldOrder {
		header = append(header, d.mapping.ColumnFor(field))
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = d.svc.Spreadsheets.Values.Update(d.spreadsheetID, d.rowRange(1), &sheetsapi.ValueRange{
		Values: [][]interface{}{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", google.WrapError(err))
	}
	return nil
}

// reindexAfterDelete shifts surviving row numbers up past the deleted rows.
func (d *Destination) reindexAfterDelete(deleted []int64) {
	for id, loc := range d.index {
		shift := int64(0)
		for _, row := range deleted {
			if row < loc.RowNumber {
				shift++
			}
		}
		if shift > 0 {
			d.index[id] = domain.Locator{RowNumber: loc.RowNumber - shift}
		}
	}
}

func (d *Destination) recordIfRateLimited(err error) {
	if google.IsRateLimited(err) {
		d.limiter.RecordRateLimitError(0)
	}
}

func (d *Destination) rowRange(row int64) string {
	last := columnLetter(len(domain.FieldOrder))
	return fmt.Sprintf("'%s'!A%d:%s%d", d.sheetName, row, last, row)
}

func (d *Destination) dataRange() string {
	return fmt.Sprintf("'%s'!A:%s", d.sheetName, columnLetter(len(domain.FieldOrder)))
}

func (d *Destination) idColumnRange() string {
	return fmt.Sprintf("'%s'!A2:A", d.sheetName)
}

func cloneIndex(index map[string]domain.Locator) map[string]domain.Locator {
	out := make(map[string]domain.Locator, len(index))
	for k, v := range index {
		out[k] = v
	}
	return out
}
