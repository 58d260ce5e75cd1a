package mocks

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

var _ driven.AuthAdapter = (*MockAuthAdapter)(nil)

// MockAuthAdapter hands out opaque tokens and remembers their claims.
// Tokens it did not issue are invalid.
type MockAuthAdapter struct {
	mu     sync.Mutex
	issued map[string]domain.TokenClaims
}

// NewMockAuthAdapter creates an empty token table.
func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{issued: make(map[string]domain.TokenClaims)}
}

func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	if claims == nil {
		return "", domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	token := fmt.Sprintf("mock-token-%d-%s", len(m.issued)+1, claims.UserID)
	m.issued[token] = *claims
	return token, nil
}

func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claims, ok := m.issued[token]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return &claims, nil
}

// Issued reports how many tokens were generated.
func (m *MockAuthAdapter) Issued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.issued)
}
