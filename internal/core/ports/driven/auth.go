package driven

import "github.com/custodia-labs/sercha-dispatch/internal/core/domain"

// AuthAdapter handles bearer token cryptographic operations.
// Users are managed by an external identity provider; only tokens are handled here.
type AuthAdapter interface {
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
