package destinations

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.DestinationFactory = (*Factory)(nil)

// Factory maps destination type tags to their builders.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.DestinationType]driven.DestinationBuilder
}

// NewFactory creates an empty destination factory.
func NewFactory() *Factory {
	return &Factory{
		builders: make(map[domain.DestinationType]driven.DestinationBuilder),
	}
}

// Register adds a builder for a destination type tag.
func (f *Factory) Register(t domain.DestinationType, builder driven.DestinationBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[t] = builder
}

// Create returns a Destination for the configuration's type tag.
func (f *Factory) Create(ctx context.Context, cfg *domain.SyncConfiguration) (driven.Destination, error) {
	f.mu.RLock()
	builder, ok := f.builders[cfg.Destination.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, cfg.Destination.Type)
	}
	return builder(ctx, cfg)
}

// SupportedTypes returns all registered type tags.
func (f *Factory) SupportedTypes() []domain.DestinationType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]domain.DestinationType, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	return types
}
