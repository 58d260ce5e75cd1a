package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

var _ driven.UserConnectorStore = (*MockUserConnectorStore)(nil)

// MockUserConnectorStore is an in-memory UserConnectorStore for testing.
type MockUserConnectorStore struct {
	mu   sync.RWMutex
	rows map[string]*domain.UserConnector

	UpdateTokensFn func(userID string, connectorID domain.ConnectorType, tokens *domain.OAuthTokenSet) error
	GetFn          func(userID string, connectorID domain.ConnectorType) (*domain.UserConnector, error)
}

// NewMockUserConnectorStore creates a new MockUserConnectorStore
func NewMockUserConnectorStore() *MockUserConnectorStore {
	return &MockUserConnectorStore{rows: make(map[string]*domain.UserConnector)}
}

func rowKey(userID string, connectorID domain.ConnectorType) string {
	return userID + ":" + string(connectorID)
}

func (m *MockUserConnectorStore) Get(ctx context.Context, userID string, connectorID domain.ConnectorType) (*domain.UserConnector, error) {
	if m.GetFn != nil {
		return m.GetFn(userID, connectorID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[rowKey(userID, connectorID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *row
	if row.OAuthTokens != nil {
		tokens := *row.OAuthTokens
		cp.OAuthTokens = &tokens
	}
	return &cp, nil
}

func (m *MockUserConnectorStore) List(ctx context.Context, userID string) ([]*domain.UserConnector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.UserConnector
	for _, t := range domain.AllConnectors() {
		if row, ok := m.rows[rowKey(userID, t)]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *MockUserConnectorStore) Save(ctx context.Context, uc *domain.UserConnector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *uc
	m.rows[rowKey(uc.UserID, uc.ConnectorID)] = &cp
	return nil
}

func (m *MockUserConnectorStore) UpdateTokens(ctx context.Context, userID string, connectorID domain.ConnectorType, tokens *domain.OAuthTokenSet) error {
	if m.UpdateTokensFn != nil {
		return m.UpdateTokensFn(userID, connectorID, tokens)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[rowKey(userID, connectorID)]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *tokens
	row.OAuthTokens = &cp
	row.UpdatedAt = time.Now()
	return nil
}

func (m *MockUserConnectorStore) Delete(ctx context.Context, userID string, connectorID domain.ConnectorType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, rowKey(userID, connectorID))
	return nil
}

func (m *MockUserConnectorStore) TouchSynced(ctx context.Context, userID string, connectorID domain.ConnectorType, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[rowKey(userID, connectorID)]; ok {
		t := at
		row.LastSyncedAt = &t
	}
	return nil
}
