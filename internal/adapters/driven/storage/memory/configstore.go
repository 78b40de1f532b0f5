package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is an in-memory implementation of driven.ConfigStore.
type ConfigStore struct {
	mu      sync.RWMutex
	configs map[string]domain.SyncConfiguration
}

// NewConfigStore creates a new in-memory configuration store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		configs: make(map[string]domain.SyncConfiguration),
	}
}

// Save stores or updates a configuration.
func (s *ConfigStore) Save(_ context.Context, cfg domain.SyncConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.ID] = cfg
	return nil
}

// Get retrieves a configuration by ID.
func (s *ConfigStore) Get(_ context.Context, id string) (*domain.SyncConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cfg, nil
}

// List returns all configurations.
func (s *ConfigStore) List(_ context.Context) ([]domain.SyncConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := make([]domain.SyncConfiguration, 0, len(s.configs))
	for _, cfg := range s.configs {
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Delete removes a configuration.
func (s *ConfigStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, id)
	return nil
}

// UpdateRunState persists the post-pass fields in one write.
func (s *ConfigStore) UpdateRunState(
	_ context.Context,
	id, cursor string,
	syncedAt time.Time,
	lastError string,
	status domain.ConfigStatus,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[id]
	if !ok {
		return domain.ErrNotFound
	}
	cfg.Cursor = cursor
	cfg.LastSyncedAt = syncedAt
	cfg.LastError = lastError
	cfg.Status = status
	cfg.UpdatedAt = time.Now()
	s.configs[id] = cfg
	return nil
}
