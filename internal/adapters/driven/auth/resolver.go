package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/calsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// CredentialSource looks up stored credentials by id.
type CredentialSource interface {
	CredentialFor(id string) (*file.Credential, error)
}

// Resolver builds and caches one Provider per credential id, so all
// sources and destinations sharing a credential share its token cache.
type Resolver struct {
	creds  CredentialSource
	leases driven.LeaseStore

	mu        sync.Mutex
	providers map[string]*Provider
}

// NewResolver creates a provider resolver.
func NewResolver(creds CredentialSource, leases driven.LeaseStore) *Resolver {
	return &Resolver{
		creds:     creds,
		leases:    leases,
		providers: make(map[string]*Provider),
	}
}

// ProviderFor returns the TokenProvider for a stored credential.
func (r *Resolver) ProviderFor(_ context.Context, credentialID string) (driven.TokenProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[credentialID]; ok {
		return p, nil
	}

	cred, err := r.creds.CredentialFor(credentialID)
	if err != nil {
		return nil, fmt.Errorf("looking up credential %s: %w", credentialID, err)
	}

	p := NewProvider(credentialID, *cred, r.leases)
	r.providers[credentialID] = p
	return p, nil
}
