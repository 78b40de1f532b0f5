package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/custodia-labs/calsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Ensure Provider implements the TokenProvider interface.
var _ driven.TokenProvider = (*Provider)(nil)

const (
	// refreshBuffer refreshes tokens slightly before they expire.
	refreshBuffer = 5 * time.Minute

	// refreshLeaseTTL bounds how long a crashed holder can block refreshes.
	refreshLeaseTTL = 30 * time.Second

	// leaseRetryInterval and maxLeaseRetries bound the wait for a
	// concurrent refresh to finish.
	leaseRetryInterval = 250 * time.Millisecond
	maxLeaseRetries    = 40
)

// Provider provides OAuth access tokens for one credential, refreshing
// through the Google token endpoint when needed.
type Provider struct {
	credentialID string
	leases       driven.LeaseStore
	holder       string

	// refresh performs the actual token refresh. Replaced in tests.
	refresh func(ctx context.Context) (*oauth2.Token, error)

	// wait sleeps between lease attempts. Replaced in tests.
	wait func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	token *oauth2.Token
}

// NewProvider creates a token provider for one stored credential.
func NewProvider(credentialID string, cred file.Credential, leases driven.LeaseStore) *Provider {
	conf := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
	}
	seed := &oauth2.Token{RefreshToken: cred.RefreshToken}

	return &Provider{
		credentialID: credentialID,
		leases:       leases,
		holder:       uuid.NewString(),
		refresh: func(ctx context.Context) (*oauth2.Token, error) {
			return conf.TokenSource(ctx, seed).Token()
		},
		wait: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
}

// CredentialID returns the credential this provider is bound to.
func (p *Provider) CredentialID() string {
	return p.credentialID
}

// GetToken returns a valid access token, refreshing if necessary.
func (p *Provider) GetToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != nil && p.token.AccessToken != "" &&
		time.Now().Before(p.token.Expiry.Add(-refreshBuffer)) {
		return p.token.AccessToken, nil
	}

	if err := p.acquireRefreshLease(ctx); err != nil {
		return "", err
	}
	defer func() {
		if err := p.leases.Release(context.WithoutCancel(ctx), p.leaseName(), p.holder); err != nil {
			logger.Warn("Failed to release refresh lease for %s: %v", p.credentialID, err)
		}
	}()

	logger.Debug("Refreshing access token for credential %s", p.credentialID)
	token, err := p.refresh(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "invalid_grant") {
			return "", domain.ErrReauthRequired
		}
		return "", fmt.Errorf("%w: %v", domain.ErrTokenRefreshFailed, err)
	}

	if token.Expiry.IsZero() {
		token.Expiry = time.Now().Add(time.Hour)
	}
	p.token = token

	return token.AccessToken, nil
}

// acquireRefreshLease claims the per-credential refresh lease, waiting out
// a concurrent holder for a bounded time.
func (p *Provider) acquireRefreshLease(ctx context.Context) error {
	for attempt := 0; attempt < maxLeaseRetries; attempt++ {
		ok, err := p.leases.Acquire(ctx, p.leaseName(), p.holder, refreshLeaseTTL)
		if err != nil {
			return fmt.Errorf("acquiring refresh lease: %w", err)
		}
		if ok {
			return nil
		}
		if err := p.wait(ctx, leaseRetryInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: refresh lease for %s still held", domain.ErrTokenRefreshFailed, p.credentialID)
}

func (p *Provider) leaseName() string {
	return "credential:" + p.credentialID
}
