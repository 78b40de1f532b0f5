// Package airtable implements the table-row destination on top of the
// Airtable REST API. Events become records addressed by the service's
// record id, so locators stay stable across passes. Writes go out in
// batches of at most ten records, the API's documented ceiling.
package airtable

import (
	"context"
	"fmt"
	"time"

	air "github.com/mehanizm/airtable"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/destinations"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Settings keys for airtable destinations.
const (
	SettingBaseID    = "base_id"
	SettingTableName = "table_name"
	SettingAPIKeyRef = "api_key_ref"
)

// maxBatchSize is the Airtable API's record cap per write request.
const maxBatchSize = 10

// requestsPerSecond matches Airtable's per-base rate limit.
const requestsPerSecond = 5

// Ensure Destination implements the interface.
var _ driven.Destination = (*Destination)(nil)

// Destination writes events as records to one Airtable table.
type Destination struct {
	table   recordTable
	mapping *domain.FieldMapping

	// index maps event id to record id for the current pass.
	index map[string]domain.Locator

	// backoff waits between retry attempts. Replaced in tests.
	backoff func(ctx context.Context, delay time.Duration) error
}

// recordTable is the slice of the Airtable client the destination uses.
// Narrowed to an interface so tests can script responses.
type recordTable interface {
	GetRecords() *air.GetRecordsConfig
	AddRecords(records *air.Records) (*air.Records, error)
	UpdateRecords(records *air.Records) (*air.Records, error)
	DeleteRecords(recordIDs []string) (*air.Records, error)
}

// New creates an airtable destination for one base and table.
func New(apiKey, baseID, tableName string, mapping *domain.FieldMapping) *Destination {
	client := air.NewClient(apiKey)
	client.SetRateLimit(requestsPerSecond)
	return &Destination{
		table:   client.GetTable(baseID, tableName),
		mapping: mapping,
		index:   make(map[string]domain.Locator),
		backoff: sleepBackoff,
	}
}

// SecretResolver resolves a secret reference from the application config.
type SecretResolver interface {
	Secret(ref string) (string, error)
}

// Builder returns a DestinationBuilder wiring airtable destinations to the
// secret store.
func Builder(secrets SecretResolver) driven.DestinationBuilder {
	return func(_ context.Context, cfg *domain.SyncConfiguration) (driven.Destination, error) {
		baseID := cfg.Destination.Setting(SettingBaseID)
		tableName := cfg.Destination.Setting(SettingTableName)
		if baseID == "" || tableName == "" {
			return nil, fmt.Errorf("%w: airtable destination requires %s and %s",
				domain.ErrInvalidInput, SettingBaseID, SettingTableName)
		}

		apiKey, err := secrets.Secret(cfg.Destination.Setting(SettingAPIKeyRef))
		if err != nil {
			return nil, fmt.Errorf("resolve airtable api key: %w", err)
		}

		return New(apiKey, baseID, tableName, cfg.Mapping), nil
	}
}

// Type returns the destination type tag.
func (d *Destination) Type() domain.DestinationType {
	return domain.DestinationAirtable
}

// Validate checks the table is reachable with the configured key.
func (d *Destination) Validate(ctx context.Context) error {
	_, err := d.fetchPage(ctx, "")
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %v", domain.ErrDestinationGone, err)
		}
		return err
	}
	return nil
}

// BuildIndex pages through the table and maps event ids to record ids.
// Airtable table schema is user-managed; writes rely on typecast to coerce
// values into whatever field types the table declares.
func (d *Destination) BuildIndex(ctx context.Context) (map[string]domain.Locator, error) {
	idLabel := d.mapping.ColumnFor(domain.FieldEventID)
	d.index = make(map[string]domain.Locator)

	offset := ""
	for {
		records, err := d.fetchPage(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}

		for _, rec := range records.Records {
			id, _ := rec.Fields[idLabel].(string)
			if id == "" {
				continue
			}
			d.index[id] = domain.Locator{RecordID: rec.ID}
		}

		if records.Offset == "" {
			break
		}
		offset = records.Offset
	}

	out := make(map[string]domain.Locator, len(d.index))
	for k, v := range d.index {
		out[k] = v
	}
	return out, nil
}

// Push writes events in batches of at most ten records. Creates and
// updates are batched separately because the API separates the verbs.
// A batch failure marks every event in that batch; other batches proceed.
func (d *Destination) Push(ctx context.Context, writes []driven.PlannedWrite) (*driven.PushResult, error) {
	result := &driven.PushResult{Locators: make(map[string]domain.Locator)}

	var creates, updates []driven.PlannedWrite
	for _, w := range writes {
		if _, ok := d.index[w.Event.ID]; ok {
			updates = append(updates, w)
		} else {
			creates = append(creates, w)
		}
	}

	for _, batch := range chunk(creates, maxBatchSize) {
		d.pushCreates(ctx, batch, result)
	}
	for _, batch := range chunk(updates, maxBatchSize) {
		d.pushUpdates(ctx, batch, result)
	}

	return result, nil
}

func (d *Destination) pushCreates(ctx context.Context, batch []driven.PlannedWrite, result *driven.PushResult) {
	records := &air.Records{Typecast: true}
	for i := range batch {
		records.Records = append(records.Records, &air.Record{
			Fields: d.renderFields(&batch[i].Event),
		})
	}

	created, err := d.withRetry(ctx, func() (*air.Records, error) {
		return d.table.AddRecords(records)
	})
	if err != nil {
		markBatchFailed(batch, err, result)
		return
	}

	// The response preserves request order.
	for i, rec := range created.Records {
		if i >= len(batch) {
			break
		}
		eventID := batch[i].Event.ID
		loc := domain.Locator{RecordID: rec.ID}
		d.index[eventID] = loc
		result.Locators[eventID] = loc
		result.Created++
	}
}

func (d *Destination) pushUpdates(ctx context.Context, batch []driven.PlannedWrite, result *driven.PushResult) {
	records := &air.Records{Typecast: true}
	for i := range batch {
		records.Records = append(records.Records, &air.Record{
			ID:     d.index[batch[i].Event.ID].RecordID,
			Fields: d.renderFields(&batch[i].Event),
		})
	}

	_, err := d.withRetry(ctx, func() (*air.Records, error) {
		return d.table.UpdateRecords(records)
	})
	if err != nil {
		markBatchFailed(batch, err, result)
		return
	}

	for i := range batch {
		eventID := batch[i].Event.ID
		result.Locators[eventID] = d.index[eventID]
		result.Updated++
	}
}

// DeleteMany removes records in batches of at most ten. Ids without an
// index entry are already gone and counted out silently.
func (d *Destination) DeleteMany(ctx context.Context, eventIDs []string) (int, error) {
	type target struct {
		eventID  string
		recordID string
	}
	var targets []target
	for _, id := range eventIDs {
		if loc, ok := d.index[id]; ok {
			targets = append(targets, target{eventID: id, recordID: loc.RecordID})
		}
	}

	deleted := 0
	for _, batch := range chunk(targets, maxBatchSize) {
		recordIDs := make([]string, 0, len(batch))
		for _, t := range batch {
			recordIDs = append(recordIDs, t.recordID)
		}

		_, err := d.withRetry(ctx, func() (*air.Records, error) {
			return d.table.DeleteRecords(recordIDs)
		})
		if err != nil {
			return deleted, fmt.Errorf("delete records: %w", err)
		}

		for _, t := range batch {
			delete(d.index, t.eventID)
		}
		deleted += len(batch)
	}

	return deleted, nil
}

func (d *Destination) renderFields(ev *domain.Event) map[string]interface{} {
	fields := make(map[string]interface{}, len(domain.FieldOrder))
	for _, field := range domain.FieldOrder {
		fields[d.mapping.ColumnFor(field)] = destinations.FieldValue(ev, field)
	}
	return fields
}

func (d *Destination) fetchPage(ctx context.Context, offset string) (*air.Records, error) {
	return d.withRetry(ctx, func() (*air.Records, error) {
		cfg := d.table.GetRecords().ReturnFields(d.mapping.ColumnFor(domain.FieldEventID))
		if offset != "" {
			cfg = cfg.WithOffset(offset)
		}
		return cfg.Do()
	})
}

func markBatchFailed(batch []driven.PlannedWrite, err error, result *driven.PushResult) {
	logger.Warn("Airtable batch of %d failed: %v", len(batch), err)
	for i := range batch {
		result.Errors = append(result.Errors, fmt.Sprintf("event %s: %v", batch[i].Event.ID, err))
	}
}

// chunk splits items into slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	var out [][]T
	for size < len(items) {
		out = append(out, items[:size:size])
		items = items[size:]
	}
	return append(out, items)
}
