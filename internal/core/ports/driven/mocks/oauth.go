package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

var (
	_ driven.OAuthRefresher      = (*MockOAuthRefresher)(nil)
	_ driven.TokenCache          = (*MockTokenCache)(nil)
	_ driven.FallbackCredentials = (*MockFallbackCredentials)(nil)
)

// ErrInvalidGrant is returned by MockOAuthRefresher for unknown refresh tokens.
var ErrInvalidGrant = errors.New("invalid_grant")

// MockOAuthRefresher issues tokens for refresh tokens listed in Valid.
type MockOAuthRefresher struct {
	mu        sync.Mutex
	Valid     map[string]*driven.OAuthToken
	RefreshFn func(creds *domain.Credentials) (*driven.OAuthToken, error)
	Calls     int
}

// NewMockOAuthRefresher creates a refresher with no valid refresh tokens.
func NewMockOAuthRefresher() *MockOAuthRefresher {
	return &MockOAuthRefresher{Valid: make(map[string]*driven.OAuthToken)}
}

func (m *MockOAuthRefresher) Refresh(ctx context.Context, creds *domain.Credentials) (*driven.OAuthToken, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()

	if m.RefreshFn != nil {
		return m.RefreshFn(creds)
	}
	tok, ok := m.Valid[creds.RefreshToken]
	if !ok {
		return nil, ErrInvalidGrant
	}
	return tok, nil
}

func (m *MockOAuthRefresher) Supports(connectorType domain.ConnectorType) bool {
	return !connectorType.Internal()
}

// CallCount returns the number of Refresh calls.
func (m *MockOAuthRefresher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockTokenCache is a map-backed TokenCache.
type MockTokenCache struct {
	mu     sync.Mutex
	tokens map[string]*domain.OAuthTokenSet
}

// NewMockTokenCache creates an empty cache.
func NewMockTokenCache() *MockTokenCache {
	return &MockTokenCache{tokens: make(map[string]*domain.OAuthTokenSet)}
}

func (m *MockTokenCache) Get(ctx context.Context, key string) (*domain.OAuthTokenSet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[key]
	return t, ok
}

func (m *MockTokenCache) Put(ctx context.Context, key string, tokens *domain.OAuthTokenSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = tokens
	return nil
}

// Len returns the number of cached entries.
func (m *MockTokenCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// MockFallbackCredentials serves fixed server-wide credentials.
type MockFallbackCredentials struct {
	Creds map[domain.ConnectorType]*domain.Credentials
}

// NewMockFallbackCredentials creates fallback credentials for the given types.
func NewMockFallbackCredentials(creds ...*domain.Credentials) *MockFallbackCredentials {
	m := &MockFallbackCredentials{Creds: make(map[domain.ConnectorType]*domain.Credentials)}
	for _, c := range creds {
		m.Creds[c.ConnectorType] = c
	}
	return m
}

func (m *MockFallbackCredentials) Lookup(t domain.ConnectorType) (*domain.Credentials, bool) {
	c, ok := m.Creds[t]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}
