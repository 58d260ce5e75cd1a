package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// UserConnectorStore persists per-user connector configuration and OAuth
// tokens. Every method is scoped to a single (user, connector) row.
type UserConnectorStore interface {
	// Get returns the row, or domain.ErrNotFound.
	Get(ctx context.Context, userID string, connectorID domain.ConnectorType) (*domain.UserConnector, error)

	// List returns all rows of a user.
	List(ctx context.Context, userID string) ([]*domain.UserConnector, error)

	// Save upserts the row keyed by (user_id, connector_id).
	Save(ctx context.Context, uc *domain.UserConnector) error

	// UpdateTokens replaces the OAuth token set of an existing row.
	UpdateTokens(ctx context.Context, userID string, connectorID domain.ConnectorType, tokens *domain.OAuthTokenSet) error

	// Delete removes the row. Deleting a missing row is not an error.
	Delete(ctx context.Context, userID string, connectorID domain.ConnectorType) error

	// TouchSynced sets last_synced_at of an existing row. A missing row is not an error.
	TouchSynced(ctx context.Context, userID string, connectorID domain.ConnectorType, at time.Time) error
}
