package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

var _ driven.Connector = (*MockConnector)(nil)

// ExecuteCall records one Execute invocation.
type ExecuteCall struct {
	Action string
	Params map[string]any
	Creds  *domain.Credentials
}

// MockConnector is a mock implementation of Connector for testing.
// ExecuteFn overrides the default behaviour of returning OK(nil).
type MockConnector struct {
	ConnectorType domain.ConnectorType
	ActionList    []string
	ExecuteFn     func(ctx context.Context, action string, params map[string]any, creds *domain.Credentials) *domain.Result

	mu    sync.Mutex
	calls []ExecuteCall
}

// NewMockConnector creates a mock connector of the given type.
func NewMockConnector(t domain.ConnectorType, actions ...string) *MockConnector {
	return &MockConnector{ConnectorType: t, ActionList: actions}
}

func (m *MockConnector) Type() domain.ConnectorType {
	return m.ConnectorType
}

func (m *MockConnector) Actions() []string {
	return m.ActionList
}

func (m *MockConnector) Execute(ctx context.Context, action string, params map[string]any, creds *domain.Credentials) *domain.Result {
	m.mu.Lock()
	m.calls = append(m.calls, ExecuteCall{Action: action, Params: params, Creds: creds})
	m.mu.Unlock()

	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, action, params, creds)
	}
	return domain.OK(nil)
}

// Calls returns a copy of the recorded calls.
func (m *MockConnector) Calls() []ExecuteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExecuteCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockConnectorRegistry is a map-backed ConnectorRegistry.
type MockConnectorRegistry struct {
	mu         sync.RWMutex
	connectors map[domain.ConnectorType]driven.Connector
}

// NewMockConnectorRegistry creates a registry holding the given connectors.
func NewMockConnectorRegistry(connectors ...driven.Connector) *MockConnectorRegistry {
	r := &MockConnectorRegistry{connectors: make(map[domain.ConnectorType]driven.Connector)}
	for _, c := range connectors {
		r.Register(c)
	}
	return r
}

func (r *MockConnectorRegistry) Register(c driven.Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Type()] = c
}

func (r *MockConnectorRegistry) Get(t domain.ConnectorType) (driven.Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[t]
	if !ok {
		return nil, domain.ErrUnsupportedProvider
	}
	return c, nil
}

func (r *MockConnectorRegistry) Types() []domain.ConnectorType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ConnectorType
	for _, t := range domain.AllConnectors() {
		if _, ok := r.connectors[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
