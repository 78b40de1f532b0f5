package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/calsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.calsync/data/calsync.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".calsync", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "calsync.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ConfigStore returns a ConfigStore interface backed by this store.
func (s *Store) ConfigStore() driven.ConfigStore {
	return &configStore{store: s}
}

// LedgerStore returns a LedgerStore interface backed by this store.
func (s *Store) LedgerStore() driven.LedgerStore {
	return &ledgerStore{store: s}
}

// RunHistoryStore returns a RunHistoryStore interface backed by this store.
func (s *Store) RunHistoryStore() driven.RunHistoryStore {
	return &runHistoryStore{store: s}
}

// LeaseStore returns a LeaseStore interface backed by this store.
func (s *Store) LeaseStore() driven.LeaseStore {
	return &leaseStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Config Store ====================

// configStore implements driven.ConfigStore.
type configStore struct {
	store *Store
}

var _ driven.ConfigStore = (*configStore)(nil)

// Save stores or updates a configuration.
func (s *configStore) Save(ctx context.Context, cfg domain.SyncConfiguration) error {
	if cfg.ID == "" {
		return domain.ErrInvalidInput
	}

	settingsJSON, err := json.Marshal(cfg.Destination.Settings)
	if err != nil {
		return fmt.Errorf("marshalling destination settings: %w", err)
	}

	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_configs
			(id, org_id, calendar_id, credential_id, destination_type, destination_settings,
			 status, frequency_class, cursor, last_synced_at, last_error, filter, mapping,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			org_id = excluded.org_id,
			calendar_id = excluded.calendar_id,
			credential_id = excluded.credential_id,
			destination_type = excluded.destination_type,
			destination_settings = excluded.destination_settings,
			status = excluded.status,
			frequency_class = excluded.frequency_class,
			cursor = excluded.cursor,
			last_synced_at = excluded.last_synced_at,
			last_error = excluded.last_error,
			filter = excluded.filter,
			mapping = excluded.mapping,
			updated_at = excluded.updated_at
	`, cfg.ID, cfg.OrgID, cfg.CalendarID, cfg.CredentialID,
		string(cfg.Destination.Type), string(settingsJSON),
		string(cfg.Status), cfg.FrequencyClass, cfg.Cursor,
		nullTime(cfg.LastSyncedAt), cfg.LastError,
		cfg.Filter.Encode(), cfg.Mapping.Encode(),
		cfg.CreatedAt, cfg.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

// Get retrieves a configuration by ID.
func (s *configStore) Get(ctx context.Context, id string) (*domain.SyncConfiguration, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, org_id, calendar_id, credential_id, destination_type, destination_settings,
		       status, frequency_class, cursor, last_synced_at, last_error, filter, mapping,
		       created_at, updated_at
		FROM sync_configs WHERE id = ?
	`, id)

	return scanConfig(row)
}

// List returns all configurations.
func (s *configStore) List(ctx context.Context) ([]domain.SyncConfiguration, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, org_id, calendar_id, credential_id, destination_type, destination_settings,
		       status, frequency_class, cursor, last_synced_at, last_error, filter, mapping,
		       created_at, updated_at
		FROM sync_configs
	`)
	if err != nil {
		return nil, fmt.Errorf("querying configs: %w", err)
	}
	defer rows.Close()

	var configs []domain.SyncConfiguration //nolint:prealloc // size unknown from query
	for rows.Next() {
		cfg, err := scanConfigRows(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating configs: %w", err)
	}

	return configs, nil
}

// Delete removes a configuration. Ledger entries cascade.
func (s *configStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_configs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting config: %w", err)
	}
	return nil
}

// UpdateRunState persists the post-pass fields in one write.
func (s *configStore) UpdateRunState(ctx context.Context, id, cursor string, syncedAt time.Time, lastError string, status domain.ConfigStatus) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE sync_configs
		SET cursor = ?, last_synced_at = ?, last_error = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, cursor, syncedAt, lastError, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating run state: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking run state update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanConfig scans a single configuration row.
func scanConfig(row *sql.Row) (*domain.SyncConfiguration, error) {
	cfg, err := scanConfigFrom(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return cfg, err
}

// scanConfigRows scans a configuration from *sql.Rows.
func scanConfigRows(rows *sql.Rows) (*domain.SyncConfiguration, error) {
	return scanConfigFrom(rows.Scan)
}

func scanConfigFrom(scan func(dest ...any) error) (*domain.SyncConfiguration, error) {
	var cfg domain.SyncConfiguration
	var destType, settingsJSON, status, filterText, mappingText string
	var lastSyncedAt sql.NullTime

	if err := scan(&cfg.ID, &cfg.OrgID, &cfg.CalendarID, &cfg.CredentialID,
		&destType, &settingsJSON, &status, &cfg.FrequencyClass, &cfg.Cursor,
		&lastSyncedAt, &cfg.LastError, &filterText, &mappingText,
		&cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning config: %w", err)
	}

	cfg.Destination.Type = domain.DestinationType(destType)
	if settingsJSON != "" {
		if err := json.Unmarshal([]byte(settingsJSON), &cfg.Destination.Settings); err != nil {
			return nil, fmt.Errorf("unmarshalling destination settings: %w", err)
		}
	}
	cfg.Status = domain.ConfigStatus(status)
	cfg.Filter = domain.ParseFilterSpec(filterText)
	cfg.Mapping = domain.ParseFieldMapping(mappingText)
	if lastSyncedAt.Valid {
		cfg.LastSyncedAt = lastSyncedAt.Time
	}

	return &cfg, nil
}

// ==================== Ledger Store ====================

// ledgerStore implements driven.LedgerStore.
type ledgerStore struct {
	store *Store
}

var _ driven.LedgerStore = (*ledgerStore)(nil)

// ListByConfig returns all ledger entries for a configuration.
func (s *ledgerStore) ListByConfig(ctx context.Context, configID string) ([]domain.SyncedEventRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, config_id, event_id, locator, content_hash, status, last_synced_at
		FROM synced_events WHERE config_id = ?
	`, configID)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var records []domain.SyncedEventRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanLedgerRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger: %w", err)
	}

	return records, nil
}

// Get retrieves the entry for (configID, eventID).
func (s *ledgerStore) Get(ctx context.Context, configID, eventID string) (*domain.SyncedEventRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, config_id, event_id, locator, content_hash, status, last_synced_at
		FROM synced_events WHERE config_id = ? AND event_id = ?
	`, configID, eventID)

	var rec domain.SyncedEventRecord
	var locatorJSON string
	var status string
	var lastSyncedAt sql.NullTime
	if err := row.Scan(&rec.ID, &rec.ConfigID, &rec.EventID, &locatorJSON,
		&rec.ContentHash, &status, &lastSyncedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning ledger entry: %w", err)
	}

	if err := json.Unmarshal([]byte(locatorJSON), &rec.Locator); err != nil {
		return nil, fmt.Errorf("unmarshalling locator: %w", err)
	}
	rec.Status = domain.RecordStatus(status)
	if lastSyncedAt.Valid {
		rec.LastSyncedAt = lastSyncedAt.Time
	}

	return &rec, nil
}

// Upsert inserts the record, or updates locator, hash, status and timestamp
// in place if an entry exists for (ConfigID, EventID). The original row id
// is preserved on conflict.
func (s *ledgerStore) Upsert(ctx context.Context, rec domain.SyncedEventRecord) error {
	if rec.ConfigID == "" || rec.EventID == "" {
		return domain.ErrInvalidInput
	}

	locatorJSON, err := json.Marshal(rec.Locator)
	if err != nil {
		return fmt.Errorf("marshalling locator: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO synced_events (id, config_id, event_id, locator, content_hash, status, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(config_id, event_id) DO UPDATE SET
			locator = excluded.locator,
			content_hash = excluded.content_hash,
			status = excluded.status,
			last_synced_at = excluded.last_synced_at
	`, rec.ID, rec.ConfigID, rec.EventID, string(locatorJSON),
		rec.ContentHash, string(rec.Status), rec.LastSyncedAt)

	if err != nil {
		return fmt.Errorf("upserting ledger entry: %w", err)
	}
	return nil
}

// PruneCancelled hard-deletes cancelled entries for a configuration.
func (s *ledgerStore) PruneCancelled(ctx context.Context, configID string) (int, error) {
	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM synced_events WHERE config_id = ? AND status = ?
	`, configID, string(domain.RecordCancelled))
	if err != nil {
		return 0, fmt.Errorf("pruning cancelled entries: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned entries: %w", err)
	}
	return int(affected), nil
}

// DeleteByConfig removes all entries for a configuration.
func (s *ledgerStore) DeleteByConfig(ctx context.Context, configID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM synced_events WHERE config_id = ?", configID)
	if err != nil {
		return fmt.Errorf("deleting ledger entries: %w", err)
	}
	return nil
}

// scanLedgerRows scans a ledger entry from *sql.Rows.
func scanLedgerRows(rows *sql.Rows) (*domain.SyncedEventRecord, error) {
	var rec domain.SyncedEventRecord
	var locatorJSON string
	var status string
	var lastSyncedAt sql.NullTime

	if err := rows.Scan(&rec.ID, &rec.ConfigID, &rec.EventID, &locatorJSON,
		&rec.ContentHash, &status, &lastSyncedAt); err != nil {
		return nil, fmt.Errorf("scanning ledger entry: %w", err)
	}

	if err := json.Unmarshal([]byte(locatorJSON), &rec.Locator); err != nil {
		return nil, fmt.Errorf("unmarshalling locator: %w", err)
	}
	rec.Status = domain.RecordStatus(status)
	if lastSyncedAt.Valid {
		rec.LastSyncedAt = lastSyncedAt.Time
	}

	return &rec, nil
}

// ==================== Run History Store ====================

// runHistoryStore implements driven.RunHistoryStore.
type runHistoryStore struct {
	store *Store
}

var _ driven.RunHistoryStore = (*runHistoryStore)(nil)

// Record logs a completed pass.
func (s *runHistoryStore) Record(ctx context.Context, run domain.SyncRun) error {
	if run.ID == "" || run.ConfigID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs
			(id, config_id, started_at, ended_at, created, updated, deleted, full_resync, error, item_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.ConfigID, run.StartedAt, run.EndedAt,
		run.Created, run.Updated, run.Deleted, run.FullResync, run.Error, run.ItemErrors)

	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// ListByConfig returns recent runs for a configuration, most recent first.
func (s *runHistoryStore) ListByConfig(ctx context.Context, configID string, limit int) ([]domain.SyncRun, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, config_id, started_at, ended_at, created, updated, deleted, full_resync, error, item_errors
		FROM sync_runs WHERE config_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, configID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.SyncRun
		if err := rows.Scan(&run.ID, &run.ConfigID, &run.StartedAt, &run.EndedAt,
			&run.Created, &run.Updated, &run.Deleted, &run.FullResync,
			&run.Error, &run.ItemErrors); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// Prune keeps the most recent 'keep' runs per configuration.
func (s *runHistoryStore) Prune(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM sync_runs
		WHERE id NOT IN (
			SELECT id FROM sync_runs AS recent
			WHERE recent.config_id = sync_runs.config_id
			ORDER BY recent.started_at DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning runs: %w", err)
	}
	return nil
}

// ==================== Lease Store ====================

// leaseStore implements driven.LeaseStore.
type leaseStore struct {
	store *Store
}

var _ driven.LeaseStore = (*leaseStore)(nil)

// Acquire claims the named lease for ttl. The upsert only fires when the
// existing claim has expired or belongs to the same holder, so a zero
// rows-affected count means another holder still owns the lease.
func (s *leaseStore) Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO leases (name, holder, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE leases.expires_at <= ? OR leases.holder = excluded.holder
	`, name, holder, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("acquiring lease: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking lease acquisition: %w", err)
	}
	return affected > 0, nil
}

// Release drops the lease if held by holder.
func (s *leaseStore) Release(ctx context.Context, name, holder string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM leases WHERE name = ? AND holder = ?", name, holder)
	if err != nil {
		return fmt.Errorf("releasing lease: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// nullTime converts a zero time to NULL for storage.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
