// Package notion implements the document destination on top of the Notion
// API. Events become pages in a database, addressed by page id. Deletion
// archives the page rather than destroying it, matching how the service
// models removal.
package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Settings keys for notion destinations.
const (
	SettingDatabaseID = "database_id"
	SettingTokenRef   = "token_ref"
)

// queryPageSize is the database query page size.
const queryPageSize = 100

// Ensure Destination implements the interface.
var _ driven.Destination = (*Destination)(nil)

// pageAPI and databaseAPI narrow the Notion client to what the destination
// calls, so tests can script responses.
type pageAPI interface {
	Create(ctx context.Context, request *notionapi.PageCreateRequest) (*notionapi.Page, error)
	Update(ctx context.Context, id notionapi.PageID, request *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

type databaseAPI interface {
	Get(ctx context.Context, id notionapi.DatabaseID) (*notionapi.Database, error)
	Update(ctx context.Context, id notionapi.DatabaseID, request *notionapi.DatabaseUpdateRequest) (*notionapi.Database, error)
	Query(ctx context.Context, id notionapi.DatabaseID, request *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// Destination writes events as pages to one Notion database.
type Destination struct {
	pages      pageAPI
	databases  databaseAPI
	databaseID notionapi.DatabaseID
	mapping    *domain.FieldMapping
	limiter    *rate.Limiter

	// titleLabel is the database's actual title property name, discovered
	// during BuildIndex. A database has exactly one title property and it
	// cannot be created or renamed through the schema ensure step.
	titleLabel string

	// index maps event id to page id for the current pass.
	index map[string]domain.Locator
}

// New creates a notion destination for one database.
func New(token, databaseID string, mapping *domain.FieldMapping) *Destination {
	client := notionapi.NewClient(notionapi.Token(token))
	return &Destination{
		pages:      client.Page,
		databases:  client.Database,
		databaseID: notionapi.DatabaseID(databaseID),
		mapping:    mapping,
		// The service allows an average of three requests per second.
		limiter: rate.NewLimiter(rate.Limit(3), 3),
		index:   make(map[string]domain.Locator),
	}
}

// SecretResolver resolves a secret reference from the application config.
type SecretResolver interface {
	Secret(ref string) (string, error)
}

// Builder returns a DestinationBuilder wiring notion destinations to the
// secret store.
func Builder(secrets SecretResolver) driven.DestinationBuilder {
	return func(_ context.Context, cfg *domain.SyncConfiguration) (driven.Destination, error) {
		databaseID := cfg.Destination.Setting(SettingDatabaseID)
		if databaseID == "" {
			return nil, fmt.Errorf("%w: notion destination requires %s", domain.ErrInvalidInput, SettingDatabaseID)
		}

		token, err := secrets.Secret(cfg.Destination.Setting(SettingTokenRef))
		if err != nil {
			return nil, fmt.Errorf("resolve notion token: %w", err)
		}

		return New(token, databaseID, cfg.Mapping), nil
	}
}

// Type returns the destination type tag.
func (d *Destination) Type() domain.DestinationType {
	return domain.DestinationNotion
}

// Validate checks the database is reachable with the configured token.
func (d *Destination) Validate(ctx context.Context) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := d.databases.Get(ctx, d.databaseID)
	if err != nil {
		return fmt.Errorf("%w: database %s: %v", domain.ErrDestinationGone, d.databaseID, err)
	}
	return nil
}

// BuildIndex ensures the database schema carries the mapped properties,
// then pages through it mapping event ids to page ids. Archived pages are
// excluded from query results, so they naturally drop out of the index.
func (d *Destination) BuildIndex(ctx context.Context) (map[string]domain.Locator, error) {
	if err := d.ensureSchema(ctx); err != nil {
		return nil, err
	}

	idLabel := d.mapping.ColumnFor(domain.FieldEventID)
	d.index = make(map[string]domain.Locator)

	cursor := notionapi.Cursor("")
	for {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := d.databases.Query(ctx, d.databaseID, &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    queryPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("query database: %w", err)
		}

		for _, page := range resp.Results {
			id := plainText(page.Properties[idLabel])
			if id == "" {
				continue
			}
			d.index[id] = domain.Locator{PageID: string(page.ID)}
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	out := make(map[string]domain.Locator, len(d.index))
	for k, v := range d.index {
		out[k] = v
	}
	return out, nil
}

// Push creates or updates one page per event. One page's failure does not
// abort the batch.
func (d *Destination) Push(ctx context.Context, writes []driven.PlannedWrite) (*driven.PushResult, error) {
	result := &driven.PushResult{Locators: make(map[string]domain.Locator)}

	for i := range writes {
		ev := &writes[i].Event
		props := d.buildProperties(ev)

		loc, known := d.index[ev.ID]
		var err error
		if known {
			err = d.updatePage(ctx, loc, props)
		} else {
			loc, err = d.createPage(ctx, props)
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

// DeleteMany archives the pages for the given event ids. Ids without an
// index entry are already archived and skipped silently.
func (d *Destination) DeleteMany(ctx context.Context, eventIDs []string) (int, error) {
	archived := 0
	for _, id := range eventIDs {
		loc, ok := d.index[id]
		if !ok {
			continue
		}

		if err := d.limiter.Wait(ctx); err != nil {
			return archived, err
		}
		_, err := d.pages.Update(ctx, notionapi.PageID(loc.PageID), &notionapi.PageUpdateRequest{
			Properties: notionapi.Properties{},
			Archived:   true,
		})
		if err != nil {
			return archived, fmt.Errorf("archive page for event %s: %w", id, err)
		}

		delete(d.index, id)
		archived++
	}
	return archived, nil
}

func (d *Destination) createPage(ctx context.Context, props notionapi.Properties) (domain.Locator, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return domain.Locator{}, err
	}
	page, err := d.pages.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: d.databaseID,
		},
		Properties: props,
	})
	if err != nil {
		return domain.Locator{}, err
	}
	return domain.Locator{PageID: string(page.ID)}, nil
}

func (d *Destination) updatePage(ctx context.Context, loc domain.Locator, props notionapi.Properties) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := d.pages.Update(ctx, notionapi.PageID(loc.PageID), &notionapi.PageUpdateRequest{
		Properties: props,
	})
	return err
}

// ensureSchema adds any mapped properties missing from the database and
// resolves the database's title property name.
func (d *Destination) ensureSchema(ctx context.Context) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	db, err := d.databases.Get(ctx, d.databaseID)
	if err != nil {
		return fmt.Errorf("%w: database %s: %v", domain.ErrDestinationGone, d.databaseID, err)
	}

	d.titleLabel = d.mapping.ColumnFor(domain.FieldTitle)
	for name, cfg := range db.Properties {
		if cfg.GetType() == notionapi.PropertyConfigTypeTitle {
			d.titleLabel = name
			break
		}
	}

	missing := notionapi.PropertyConfigs{}
	for _, field := range domain.FieldOrder {
		if field == domain.FieldTitle {
			continue // the title property always exists
		}
		label := d.mapping.ColumnFor(field)
		if _, ok := db.Properties[label]; ok {
			continue
		}
		missing[label] = propertyConfigFor(field)
	}
	if len(missing) == 0 {
		return nil
	}

	logger.Debug("Adding %d missing properties to database %s", len(missing), d.databaseID)
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = d.databases.Update(ctx, d.databaseID, &notionapi.DatabaseUpdateRequest{
		Properties: missing,
	})
	if err != nil {
		return fmt.Errorf("update database schema: %w", err)
	}
	return nil
}
