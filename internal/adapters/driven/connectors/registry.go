package connectors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ConnectorRegistry = (*Registry)(nil)

// Registry maps connector types to their adapters.
type Registry struct {
	mu         sync.RWMutex
	connectors map[domain.ConnectorType]driven.Connector
}

// NewRegistry creates a registry holding the given connectors.
func NewRegistry(connectors ...driven.Connector) *Registry {
	r := &Registry{connectors: make(map[domain.ConnectorType]driven.Connector)}
	for _, c := range connectors {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the adapter for its connector type.
func (r *Registry) Register(c driven.Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Type()] = c
}

// Get returns the adapter for t.
func (r *Registry) Get(t domain.ConnectorType) (driven.Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, t)
	}
	return c, nil
}

// Types returns all registered connector types, sorted.
func (r *Registry) Types() []domain.ConnectorType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.ConnectorType, 0, len(r.connectors))
	for t := range r.connectors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
