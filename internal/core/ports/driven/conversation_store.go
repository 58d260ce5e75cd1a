package driven

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// ConversationStore persists conversation history for display.
// A single request/response cycle does not depend on it.
type ConversationStore interface {
	// Create stores a new conversation
	Create(ctx context.Context, conv *domain.Conversation) error

	// Get retrieves a conversation by ID
	Get(ctx context.Context, id string) (*domain.Conversation, error)

	// AppendMessages adds messages in order after the last stored message
	AppendMessages(ctx context.Context, conversationID string, msgs []domain.Message) error

	// Messages returns the messages of a conversation ordered by turn
	Messages(ctx context.Context, conversationID string) ([]domain.Message, error)
}
