package domain

import "time"

// Role is the author of a conversation message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether the role is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message is one turn of a conversation, ordered by Seq when persisted.
type Message struct {
	ID         string     `json:"id,omitempty"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Seq        int        `json:"seq,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// Conversation groups the messages of one chat thread for history display.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoopState is a state of the conversation loop controller
type LoopState string

const (
	LoopAwaitingModel  LoopState = "awaiting_model"
	LoopExecutingTools LoopState = "executing_tools"
	LoopStreaming      LoopState = "streaming"
)

// LastUserMessage returns the content of the most recent user message.
func LastUserMessage(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
