package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

var _ driven.ConversationStore = (*MockConversationStore)(nil)

// MockConversationStore is an in-memory ConversationStore for testing.
type MockConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
	messages      map[string][]domain.Message
}

// NewMockConversationStore creates a new MockConversationStore
func NewMockConversationStore() *MockConversationStore {
	return &MockConversationStore{
		conversations: make(map[string]*domain.Conversation),
		messages:      make(map[string][]domain.Message),
	}
}

func (m *MockConversationStore) Create(ctx context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *conv
	m.conversations[conv.ID] = &cp
	return nil
}

func (m *MockConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

func (m *MockConversationStore) AppendMessages(ctx context.Context, conversationID string, msgs []domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[conversationID]; !ok {
		return domain.ErrNotFound
	}
	seq := len(m.messages[conversationID])
	for _, msg := range msgs {
		seq++
		msg.Seq = seq
		m.messages[conversationID] = append(m.messages[conversationID], msg)
	}
	return nil
}

func (m *MockConversationStore) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Message, len(m.messages[conversationID]))
	copy(out, m.messages[conversationID])
	return out, nil
}
