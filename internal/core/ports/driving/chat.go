package driving

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// ChatService runs one user turn of the conversation loop.
type ChatService interface {
	// Start runs the model and tool passes and opens the final stream.
	// Errors returned here happen before any byte is streamed.
	Start(ctx context.Context, user domain.UserContext, req ChatRequest) (ChatReply, error)

	// History returns the stored messages of a conversation owned by userID.
	History(ctx context.Context, userID, conversationID string) ([]domain.Message, error)
}

// ChatReply is an open final stream.
type ChatReply interface {
	// ConversationID is empty when history is not persisted.
	ConversationID() string

	// ToolResults lists the tools executed during the turn, in request order.
	ToolResults() []domain.ToolResult

	// Relay passes each gateway event to emit verbatim until the stream ends.
	Relay(emit func(raw []byte) error) error

	// Close releases the stream. Safe to call more than once.
	Close() error
}

// ChatRequest is one turn of a conversation.
// @Description Universal chat request
type ChatRequest struct {
	Messages         []domain.Message         `json:"messages"`
	ConnectedSources []domain.ConnectedSource `json:"connectedSources,omitempty"`

	// ConversationID continues a stored conversation. Empty starts a new one.
	ConversationID string `json:"conversationId,omitempty"`
}
