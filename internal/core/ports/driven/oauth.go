package driven

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// OAuthToken represents OAuth tokens from a provider.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int    // Seconds until expiry
	TokenType    string // Usually "Bearer"
	Scope        string // Space-separated scopes
}

// OAuthRefresher exchanges a refresh token for a new access token at the
// connector's token endpoint.
type OAuthRefresher interface {
	// Refresh performs the refresh_token grant for the credentials' connector.
	// creds.BaseURL is used by providers with per-instance token endpoints.
	Refresh(ctx context.Context, creds *domain.Credentials) (*OAuthToken, error)

	// Supports reports whether a refresh is possible for the connector type.
	Supports(connectorType domain.ConnectorType) bool
}

// TokenCache holds freshly refreshed token sets, keyed by a fingerprint of
// the refresh token. Implementations are non-authoritative: a miss only
// costs an extra refresh.
type TokenCache interface {
	Get(ctx context.Context, key string) (*domain.OAuthTokenSet, bool)
	Put(ctx context.Context, key string, tokens *domain.OAuthTokenSet) error
}

// FallbackCredentials provides server-wide credentials used when a user has
// not configured a connector.
type FallbackCredentials interface {
	// Lookup returns the fallback credentials for a connector type.
	Lookup(connectorType domain.ConnectorType) (*domain.Credentials, bool)
}
