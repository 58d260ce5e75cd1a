package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// OAuth connector actions.
const (
	OAuthActionSaveTokens   = "save-tokens"
	OAuthActionGetToken     = "get-token"
	OAuthActionRefreshToken = "refresh-token"
	OAuthActionRevoke       = "revoke"
)

// OAuthService manages the OAuth token set of the authenticated user's
// connectors. The authorization-code flow itself happens at the provider.
type OAuthService interface {
	// Handle runs one action against the (userID, connector) row.
	Handle(ctx context.Context, userID string, req OAuthRequest) (*OAuthResponse, error)
}

// OAuthRequest is a token management request.
// @Description OAuth token management request
type OAuthRequest struct {
	// Action is save-tokens, get-token, refresh-token or revoke.
	Action string `json:"action" example:"save-tokens"`

	// ConnectorID is the connector type.
	ConnectorID string `json:"connectorId" example:"google_drive"`

	AccessToken  string     `json:"accessToken,omitempty"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty" example:"2024-01-15T10:10:00Z"`
	Email        string     `json:"email,omitempty" example:"user@example.com"`

	// Config holds non-secret settings such as base_url, stored with the row.
	Config map[string]string `json:"config,omitempty"`
}

// OAuthResponse is the outcome of an OAuth action.
// @Description OAuth token management response
type OAuthResponse struct {
	Success     bool                   `json:"success"`
	ConnectorID domain.ConnectorType   `json:"connectorId"`
	AccessToken string                 `json:"accessToken,omitempty"`
	ExpiresAt   *time.Time             `json:"expiresAt,omitempty"`
	Status      domain.ConnectorStatus `json:"status,omitempty"`
}
