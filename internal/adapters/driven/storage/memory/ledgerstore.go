package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure LedgerStore implements the interface.
var _ driven.LedgerStore = (*LedgerStore)(nil)

// LedgerStore is an in-memory implementation of driven.LedgerStore.
type LedgerStore struct {
	mu sync.RWMutex
	// records is keyed by configID, then eventID.
	records map[string]map[string]domain.SyncedEventRecord
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		records: make(map[string]map[string]domain.SyncedEventRecord),
	}
}

// ListByConfig returns all ledger entries for a configuration.
func (s *LedgerStore) ListByConfig(_ context.Context, configID string) ([]domain.SyncedEventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byEvent := s.records[configID]
	recs := make([]domain.SyncedEventRecord, 0, len(byEvent))
	for _, rec := range byEvent {
		recs = append(recs, rec)
	}
	return recs, nil
}

// Get retrieves the entry for (configID, eventID).
func (s *LedgerStore) Get(_ context.Context, configID, eventID string) (*domain.SyncedEventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[configID][eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Upsert inserts or updates the entry keyed by (ConfigID, EventID).
func (s *LedgerStore) Upsert(_ context.Context, rec domain.SyncedEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byEvent, ok := s.records[rec.ConfigID]
	if !ok {
		byEvent = make(map[string]domain.SyncedEventRecord)
		s.records[rec.ConfigID] = byEvent
	}
	if existing, found := byEvent[rec.EventID]; found {
		rec.ID = existing.ID
	}
	byEvent[rec.EventID] = rec
	return nil
}

// PruneCancelled hard-deletes cancelled entries for a configuration.
func (s *LedgerStore) PruneCancelled(_ context.Context, configID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for eventID, rec := range s.records[configID] {
		if rec.Status == domain.RecordCancelled {
			delete(s.records[configID], eventID)
			count++
		}
	}
	return count, nil
}

// DeleteByConfig removes all entries for a configuration.
func (s *LedgerStore) DeleteByConfig(_ context.Context, configID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, configID)
	return nil
}
