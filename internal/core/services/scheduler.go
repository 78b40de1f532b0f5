package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// maxConfigsPerTick caps how many configurations one scheduler tick
// processes, bounding the worst-case wall-clock time of a tick.
const maxConfigsPerTick = 50

// tickInterval is how often the due set is re-evaluated.
const tickInterval = 1 * time.Minute

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler periodically selects due sync configurations and feeds them
// one at a time into the reconciliation engine. Passes run sequentially;
// one failing configuration never aborts the rest of the due set.
type Scheduler struct {
	configStore driven.ConfigStore
	planGate    driven.PlanGate
	runner      driving.SyncRunner

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler.
func NewScheduler(
	configStore driven.ConfigStore,
	planGate driven.PlanGate,
	runner driving.SyncRunner,
) *Scheduler {
	return &Scheduler{
		configStore: configStore,
		planGate:    planGate,
		runner:      runner,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	// Process the due set immediately on startup.
	s.Tick(ctx)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop gracefully shuts down the scheduler and waits for the running pass.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Tick processes the due set once, sequentially, capped at
// maxConfigsPerTick. Returns the number of configurations processed.
func (s *Scheduler) Tick(ctx context.Context) int {
	s.wg.Add(1)
	defer s.wg.Done()

	configs, err := s.configStore.List(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list configurations: %v", err)
		return 0
	}

	now := time.Now()
	processed := 0
	for i := range configs {
		if processed >= maxConfigsPerTick {
			logger.Info("scheduler: tick cap of %d reached, deferring remainder", maxConfigsPerTick)
			break
		}
		cfg := &configs[i]
		interval := s.planGate.IntervalFor(cfg.FrequencyClass)
		if !cfg.Due(now, interval) {
			continue
		}

		select {
		case <-ctx.Done():
			return processed
		default:
		}

		s.runOne(ctx, cfg.ID)
		processed++
	}

	return processed
}

// runOne executes a single pass, catching every failure so the rest of the
// due set still runs.
func (s *Scheduler) runOne(ctx context.Context, configID string) {
	result, err := s.runner.RunOnce(ctx, configID)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		logger.Debug("scheduler: configuration %s already syncing, skipped", configID)
	case err != nil:
		logger.Warn("scheduler: pass failed for %s: %v", configID, err)
	case result.HasErrors():
		logger.Info("scheduler: pass for %s completed with %d item errors", configID, len(result.Errors))
	}
}
