package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/calsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/calsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/calsync/internal/core/domain"
)

func newTestProvider(t *testing.T, refresh func(ctx context.Context) (*oauth2.Token, error)) *Provider {
	t.Helper()

	p := NewProvider("cred-1", file.Credential{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	}, memory.NewLeaseStore())
	p.refresh = refresh
	p.wait = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestGetTokenRefreshesAndCaches(t *testing.T) {
	refreshes := 0
	p := newTestProvider(t, func(context.Context) (*oauth2.Token, error) {
		refreshes++
		return &oauth2.Token{
			AccessToken: "token-1",
			Expiry:      time.Now().Add(time.Hour),
		}, nil
	})

	token, err := p.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	// Second call is served from cache.
	token, err = p.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, 1, refreshes)
}

func TestGetTokenRefreshesNearExpiry(t *testing.T) {
	refreshes := 0
	p := newTestProvider(t, func(context.Context) (*oauth2.Token, error) {
		refreshes++
		return &oauth2.Token{
			AccessToken: "token",
			// Inside the refresh buffer, so every call refreshes.
			Expiry: time.Now().Add(time.Minute),
		}, nil
	})

	_, err := p.GetToken(context.Background())
	require.NoError(t, err)
	_, err = p.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, refreshes)
}

func TestGetTokenInvalidGrant(t *testing.T) {
	p := newTestProvider(t, func(context.Context) (*oauth2.Token, error) {
		return nil, errors.New(`oauth2: "invalid_grant" "Token has been expired or revoked."`)
	})

	_, err := p.GetToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrReauthRequired)
}

func TestGetTokenRefreshFailure(t *testing.T) {
	p := newTestProvider(t, func(context.Context) (*oauth2.Token, error) {
		return nil, errors.New("connection refused")
	})

	_, err := p.GetToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrTokenRefreshFailed)
}

func TestGetTokenWaitsForRefreshLease(t *testing.T) {
	leases := memory.NewLeaseStore()
	p := NewProvider("cred-1", file.Credential{}, leases)
	p.refresh = func(context.Context) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "token", Expiry: time.Now().Add(time.Hour)}, nil
	}

	// Another holder owns the refresh lease and never lets go.
	ok, err := leases.Acquire(context.Background(), "credential:cred-1", "other", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	waits := 0
	p.wait = func(context.Context, time.Duration) error {
		waits++
		return nil
	}

	_, err = p.GetToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrTokenRefreshFailed)
	assert.Equal(t, maxLeaseRetries, waits)
}

func TestGetTokenReleasesLease(t *testing.T) {
	leases := memory.NewLeaseStore()
	p := NewProvider("cred-1", file.Credential{}, leases)
	p.refresh = func(context.Context) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "token", Expiry: time.Now().Add(time.Hour)}, nil
	}

	_, err := p.GetToken(context.Background())
	require.NoError(t, err)

	// The lease is free again for another holder.
	ok, err := leases.Acquire(context.Background(), "credential:cred-1", "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

type staticCredentials map[string]file.Credential

func (s staticCredentials) CredentialFor(id string) (*file.Credential, error) {
	cred, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cred, nil
}

func TestResolverCachesProviders(t *testing.T) {
	resolver := NewResolver(staticCredentials{
		"cred-1": {ClientID: "client"},
	}, memory.NewLeaseStore())

	first, err := resolver.ProviderFor(context.Background(), "cred-1")
	require.NoError(t, err)
	second, err := resolver.ProviderFor(context.Background(), "cred-1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "cred-1", first.CredentialID())
}

func TestResolverUnknownCredential(t *testing.T) {
	resolver := NewResolver(staticCredentials{}, memory.NewLeaseStore())

	_, err := resolver.ProviderFor(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
