package driving

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// ToolService exposes the tool catalog and dispatches tool calls.
type ToolService interface {
	// Catalog returns every tool in catalog order.
	Catalog() []domain.ToolDescriptor

	// Available returns the tools visible for the connected sources.
	Available(sources []domain.ConnectedSource) []domain.ToolDescriptor

	// Dispatch executes one tool call. It never returns a raw error.
	Dispatch(ctx context.Context, user domain.UserContext, call domain.ToolCall) *domain.Result
}

// ToolsRequest asks for the visible catalog.
// @Description Visible tool catalog request
type ToolsRequest struct {
	ConnectedSources []domain.ConnectedSource `json:"connectedSources,omitempty"`
}
