package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// syncLeaseTTL bounds how long a crashed pass can block its configuration.
const syncLeaseTTL = 15 * time.Minute

// historyKeep is how many run history entries are retained per configuration.
const historyKeep = 100

// Ensure ReconcileEngine implements the interface.
var _ driving.SyncRunner = (*ReconcileEngine)(nil)

// ReconcileEngine orchestrates one reconciliation pass per call: pull
// changes from the calendar source, diff against the ledger, apply minimal
// idempotent batches to the destination, and persist cursor and state.
type ReconcileEngine struct {
	configStore  driven.ConfigStore
	ledger       driven.LedgerStore
	history      driven.RunHistoryStore
	leases       driven.LeaseStore
	sources      driven.SourceFactory
	destinations driven.DestinationFactory
}

// NewReconcileEngine creates a reconciliation engine.
func NewReconcileEngine(
	configStore driven.ConfigStore,
	ledger driven.LedgerStore,
	history driven.RunHistoryStore,
	leases driven.LeaseStore,
	sources driven.SourceFactory,
	destinations driven.DestinationFactory,
) *ReconcileEngine {
	return &ReconcileEngine{
		configStore:  configStore,
		ledger:       ledger,
		history:      history,
		leases:       leases,
		sources:      sources,
		destinations: destinations,
	}
}

// RunOnce performs one reconciliation pass for a configuration.
//
// Expected failure modes never surface as a returned error: fatal pass
// failures (missing destination, revoked credentials) are recorded on the
// configuration and in the result, and per-event write failures accumulate
// in the result's error list while the pass completes. Only setup failures
// (unknown configuration, pass already running) return a non-nil error.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (e *ReconcileEngine) RunOnce(ctx context.Context, configID string) (*domain.SyncRunResult, error) {
	cfg, err := e.configStore.Get(ctx, configID)
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}

	// Same-configuration passes are mutually exclusive: the ledger upsert
	// and cursor write are not safe under concurrent writers for one key.
	holder := uuid.NewString()
	acquired, err := e.leases.Acquire(ctx, "sync:"+configID, holder, syncLeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lease: %w", err)
	}
	if !acquired {
		return nil, domain.ErrSyncInProgress
	}
	defer func() {
		if relErr := e.leases.Release(context.WithoutCancel(ctx), "sync:"+configID, holder); relErr != nil {
			logger.Warn("Failed to release sync lease for %s: %v", configID, relErr)
		}
	}()

	startedAt := time.Now()
	result := &domain.SyncRunResult{ConfigID: configID, NewCursor: cfg.Cursor}
	logger.Info("Starting sync pass for configuration %s (%s -> %s)",
		configID, cfg.CalendarID, cfg.Destination.Type)

	// 1. Resolve the destination variant and build its index. Nothing has
	// been committed yet, so failures here leave the cursor untouched and
	// the next run retries from the old position.
	dest, err := e.destinations.Create(ctx, cfg)
	if err != nil {
		return e.failPass(ctx, cfg, result, startedAt, fmt.Errorf("resolve destination: %w", err))
	}

	index, err := dest.BuildIndex(ctx)
	if err != nil {
		return e.failPass(ctx, cfg, result, startedAt, fmt.Errorf("build destination index: %w", err))
	}
	logger.Debug("Destination index for %s holds %d records", configID, len(index))

	// 2. Load the ledger for this configuration. Cancelled entries from
	// earlier passes had their destination deletes confirmed, so they are
	// hard-deleted here rather than in the pass that retracted them.
	if pruned, pruneErr := e.ledger.PruneCancelled(ctx, configID); pruneErr != nil {
		logger.Warn("Failed to prune cancelled ledger entries for %s: %v", configID, pruneErr)
	} else if pruned > 0 {
		logger.Debug("Pruned %d cancelled ledger entries for %s", pruned, configID)
	}

	recs, err := e.ledger.ListByConfig(ctx, configID)
	if err != nil {
		return e.failPass(ctx, cfg, result, startedAt, fmt.Errorf("load ledger: %w", err))
	}
	records := make(map[string]domain.SyncedEventRecord, len(recs))
	for _, rec := range recs {
		records[rec.EventID] = rec
	}

	// 3. Pull changes through the sync token cursor, with exactly one
	// bounded full-pull fallback if the stored token has expired.
	source, err := e.sources.Create(ctx, cfg)
	if err != nil {
		return e.failPass(ctx, cfg, result, startedAt, fmt.Errorf("resolve calendar source: %w", err))
	}

	pull, err := source.Pull(ctx, cfg.Cursor)
	if errors.Is(err, driven.ErrSyncTokenExpired) {
		logger.Info("Sync token expired for %s, falling back to full resync", configID)
		result.FullResync = true
		pull, err = source.Pull(ctx, "")
	}
	if err != nil {
		return e.failPass(ctx, cfg, result, startedAt, fmt.Errorf("pull events: %w", err))
	}

	// A pull that returns no new token keeps the previous one: dropping it
	// would silently force a full resync on the next pass. The exception is
	// the expiry fallback, whose old token is known dead; persisting it
	// would replay the expired-token round trip on every pass.
	if pull.NextToken != "" {
		result.NewCursor = pull.NextToken
	} else if result.FullResync {
		result.NewCursor = ""
	}

	// 4. Classify each pulled event into exactly one operation.
	plan := classify(pull.Events, records, cfg.Filter)
	logger.Debug("Classified %d events for %s: %d writes, %d deletes, %d skipped",
		len(pull.Events), configID, len(plan.writes), len(plan.deletes), plan.skipped)

	// 5-6. Creates and updates are fully attempted before deletes, so an
	// event re-created under a new id and cancelled under its old one can
	// never race in an order that loses data. Ledger upserts follow each
	// batch so a mid-pass crash retries only the unfinished work.
	now := time.Now()

	if len(plan.writes) > 0 {
		pushRes, pushErr := dest.Push(ctx, plan.writes)
		if pushErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("push batch: %v", pushErr))
		} else {
			result.Created = pushRes.Created
			result.Updated = pushRes.Updated
			result.Errors = append(result.Errors, pushRes.Errors...)
			e.commitWrites(ctx, cfg, plan.writes, pushRes, records, now, result)
		}
	}

	if len(plan.deletes) > 0 {
		deleted, delErr := dest.DeleteMany(ctx, plan.deletes)
		if delErr != nil {
			// Ledger entries stay active so the retraction retries next pass.
			result.Errors = append(result.Errors, fmt.Sprintf("delete batch: %v", delErr))
		} else {
			result.Deleted = deleted
			e.commitDeletes(ctx, cfg, plan.deletes, records, now, result)
		}
	}

	// 7. Persist cursor, timestamp and error state.
	lastError := strings.Join(result.Errors, "; ")
	status := domain.ConfigActive
	if cfg.Status == domain.ConfigPaused {
		status = domain.ConfigPaused
	}
	if err := e.configStore.UpdateRunState(ctx, configID, result.NewCursor, now, lastError, status); err != nil {
		return nil, fmt.Errorf("persist run state: %w", err)
	}

	e.recordRun(ctx, cfg, result, startedAt, "")
	logger.Info("Sync pass complete for %s: %d created, %d updated, %d deleted, %d errors",
		configID, result.Created, result.Updated, result.Deleted, len(result.Errors))
	return result, nil
}

// commitWrites upserts ledger entries for every event the destination
// reported as successfully created or updated.
func (e *ReconcileEngine) commitWrites(
	ctx context.Context,
	cfg *domain.SyncConfiguration,
	writes []driven.PlannedWrite,
	pushRes *driven.PushResult,
	records map[string]domain.SyncedEventRecord,
	now time.Time,
	result *domain.SyncRunResult,
) {
	for _, w := range writes {
		loc, ok := pushRes.Locators[w.Event.ID]
		if !ok {
			continue // failed write, ledger left stale for retry
		}

		rec := domain.SyncedEventRecord{
			ID:           uuid.NewString(),
			ConfigID:     cfg.ID,
			EventID:      w.Event.ID,
			Locator:      loc,
			ContentHash:  w.Event.ContentHash(),
			Status:       domain.RecordActive,
			LastSyncedAt: now,
		}
		if existing, found := records[w.Event.ID]; found {
			rec.ID = existing.ID
		}

		if err := e.ledger.Upsert(ctx, rec); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("ledger upsert %s: %v", w.Event.ID, err))
		}
	}
}

// commitDeletes flips ledger entries to cancelled for every retracted id.
// Entries are retained, not hard-deleted, so the destination delete stays
// idempotent if this pass is interrupted; cleanup prunes them later.
func (e *ReconcileEngine) commitDeletes(
	ctx context.Context,
	cfg *domain.SyncConfiguration,
	deletes []string,
	records map[string]domain.SyncedEventRecord,
	now time.Time,
	result *domain.SyncRunResult,
) {
	for _, eventID := range deletes {
		rec, found := records[eventID]
		if !found {
			continue
		}
		rec.Status = domain.RecordCancelled
		rec.LastSyncedAt = now

		if err := e.ledger.Upsert(ctx, rec); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("ledger cancel %s: %v", eventID, err))
		}
	}
}

// failPass records a fatal pass failure: last error and ERROR status on the
// configuration, a history entry, and the message in the result. The cursor
// is left at its previous value so the next scheduled run retries from the
// same position.
func (e *ReconcileEngine) failPass(
	ctx context.Context,
	cfg *domain.SyncConfiguration,
	result *domain.SyncRunResult,
	startedAt time.Time,
	failure error,
) (*domain.SyncRunResult, error) {
	msg := failure.Error()
	if errors.Is(failure, domain.ErrReauthRequired) {
		msg = domain.ErrReauthRequired.Error()
	}
	logger.Warn("Sync pass failed for %s: %s", cfg.ID, msg)

	result.Errors = append(result.Errors, msg)
	status := domain.ConfigError
	if cfg.Status == domain.ConfigPaused {
		// A manually triggered pass on a paused configuration must not
		// re-enrol it in the schedule by flipping it to error.
		status = domain.ConfigPaused
	}
	if err := e.configStore.UpdateRunState(ctx, cfg.ID, cfg.Cursor, time.Now(), msg, status); err != nil {
		logger.Warn("Failed to persist error state for %s: %v", cfg.ID, err)
	}

	e.recordRun(ctx, cfg, result, startedAt, msg)
	return result, nil
}

// recordRun appends a history entry for the pass and prunes old entries.
func (e *ReconcileEngine) recordRun(
	ctx context.Context,
	cfg *domain.SyncConfiguration,
	result *domain.SyncRunResult,
	startedAt time.Time,
	fatal string,
) {
	run := domain.SyncRun{
		ID:         uuid.NewString(),
		ConfigID:   cfg.ID,
		StartedAt:  startedAt,
		EndedAt:    time.Now(),
		Created:    result.Created,
		Updated:    result.Updated,
		Deleted:    result.Deleted,
		FullResync: result.FullResync,
		Error:      fatal,
		ItemErrors: len(result.Errors),
	}
	if err := e.history.Record(ctx, run); err != nil {
		logger.Warn("Failed to record run history for %s: %v", cfg.ID, err)
	}
	if err := e.history.Prune(ctx, historyKeep); err != nil {
		logger.Warn("Failed to prune run history: %v", err)
	}
}
