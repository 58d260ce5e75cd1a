package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToolDescriptor describes one function the model may call.
// Descriptors are built once at startup and never mutated.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`

	// Connector and Action bind the tool to exactly one adapter call.
	Connector ConnectorType `json:"connector"`
	Action    string        `json:"action"`
}

// ToolCall is one model-requested invocation.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON object
}

// ParseArguments decodes the raw JSON arguments into a map.
// Empty arguments decode to an empty map.
func (c ToolCall) ParseArguments() (map[string]any, error) {
	args := map[string]any{}
	raw := strings.TrimSpace(c.Arguments)
	if raw == "" || raw == "null" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: arguments for %s are not a JSON object", ErrValidation, c.Name)
	}
	return args, nil
}

// ToolResult pairs a tool call with its normalized outcome.
type ToolResult struct {
	Call   ToolCall `json:"call"`
	Result *Result  `json:"result"`
}

// Connector actions shared by adapters.
const (
	ActionTestConnection  = "testConnection"
	ActionSearch          = "search"
	ActionGet             = "get"
	ActionList            = "list"
	ActionCount           = "count"
	ActionCreate          = "create"
	ActionUpdate          = "update"
	ActionSearchKnowledge = "search_knowledge"
	ActionSearchCode      = "search_code"
)

// Page size bounds for connector list and search calls.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// PageSize clamps a requested limit into [1, MaxPageSize].
func PageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
