package calendar

import (
	"context"
	"fmt"

	"github.com/custodia-labs/calsync/internal/connectors/google"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// TokenProviderResolver resolves the TokenProvider for a stored credential.
type TokenProviderResolver interface {
	ProviderFor(ctx context.Context, credentialID string) (driven.TokenProvider, error)
}

// Ensure Factory implements the interface.
var _ driven.SourceFactory = (*Factory)(nil)

// Factory builds calendar sources bound to a configuration's calendar and
// credential.
type Factory struct {
	tokens TokenProviderResolver
}

// NewFactory creates a source factory.
func NewFactory(tokens TokenProviderResolver) *Factory {
	return &Factory{tokens: tokens}
}

// Create returns a CalendarSource for the configuration.
func (f *Factory) Create(ctx context.Context, cfg *domain.SyncConfiguration) (driven.CalendarSource, error) {
	provider, err := f.tokens.ProviderFor(ctx, cfg.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("resolve credential %s: %w", cfg.CredentialID, err)
	}

	svc, err := google.NewCalendarService(ctx, google.NewTokenSource(ctx, provider))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return NewSource(svc, cfg.CalendarID), nil
}
