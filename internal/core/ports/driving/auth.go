package driving

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// AuthService validates bearer user tokens issued by the identity provider
type AuthService interface {
	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// IssueToken signs a token for a user. Used by operators and tests.
	IssueToken(ctx context.Context, userID, email string) (string, error)
}
