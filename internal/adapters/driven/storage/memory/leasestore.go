package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure LeaseStore implements the interface.
var _ driven.LeaseStore = (*LeaseStore)(nil)

type lease struct {
	holder    string
	expiresAt time.Time
}

// LeaseStore is an in-memory implementation of driven.LeaseStore.
type LeaseStore struct {
	mu     sync.Mutex
	leases map[string]lease
}

// NewLeaseStore creates a new in-memory lease store.
func NewLeaseStore() *LeaseStore {
	return &LeaseStore{
		leases: make(map[string]lease),
	}
}

// Acquire claims the named lease for ttl.
func (s *LeaseStore) Acquire(_ context.Context, name, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.leases[name]; ok {
		if existing.holder != holder && existing.expiresAt.After(now) {
			return false, nil
		}
	}
	s.leases[name] = lease{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release drops the lease if held by holder.
func (s *LeaseStore) Release(_ context.Context, name, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.leases[name]; ok && existing.holder == holder {
		delete(s.leases, name)
	}
	return nil
}
