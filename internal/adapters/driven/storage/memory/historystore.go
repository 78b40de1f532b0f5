package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure RunHistoryStore implements the interface.
var _ driven.RunHistoryStore = (*RunHistoryStore)(nil)

// RunHistoryStore is an in-memory implementation of driven.RunHistoryStore.
type RunHistoryStore struct {
	mu   sync.RWMutex
	runs []domain.SyncRun
}

// NewRunHistoryStore creates a new in-memory run history store.
func NewRunHistoryStore() *RunHistoryStore {
	return &RunHistoryStore{}
}

// Record logs a completed pass.
func (s *RunHistoryStore) Record(_ context.Context, run domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// ListByConfig returns recent runs for a configuration, most recent first.
func (s *RunHistoryStore) ListByConfig(_ context.Context, configID string, limit int) ([]domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []domain.SyncRun
	for _, run := range s.runs {
		if run.ConfigID == configID {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Prune keeps the most recent 'keep' runs per configuration.
func (s *RunHistoryStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byConfig := make(map[string][]domain.SyncRun)
	for _, run := range s.runs {
		byConfig[run.ConfigID] = append(byConfig[run.ConfigID], run)
	}

	var kept []domain.SyncRun
	for _, runs := range byConfig {
		sort.Slice(runs, func(i, j int) bool {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		})
		if keep > 0 && len(runs) > keep {
			runs = runs[:keep]
		}
		kept = append(kept, runs...)
	}
	s.runs = kept
	return nil
}
