package driving

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// ConnectorService executes connector actions directly, outside a conversation.
type ConnectorService interface {
	// Execute runs one action. userID may be empty for anonymous callers,
	// in which case only request config and server fallback credentials apply.
	Execute(ctx context.Context, userID string, req ExecuteRequest) *domain.Result

	// Connections lists the stored connectors of a user with secrets removed.
	Connections(ctx context.Context, userID string) ([]*domain.UserConnector, error)
}

// ExecuteRequest is a direct connector call.
// @Description Connector action request
type ExecuteRequest struct {
	// Connector is the connector type, e.g. servicenow or github.
	Connector string `json:"connector" example:"servicenow"`

	// Action is one of the connector's actions.
	Action string `json:"action" example:"testConnection"`

	// Config overrides stored settings and credentials for this call only.
	Config map[string]string `json:"config,omitempty"`

	// Params are the action parameters.
	Params map[string]any `json:"params,omitempty"`
}
