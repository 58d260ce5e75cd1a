package services

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// DefaultTokenTTL is the lifetime of issued bearer tokens.
const DefaultTokenTTL = 24 * time.Hour

// authService implements the AuthService interface
type authService struct {
	authAdapter driven.AuthAdapter
	tokenTTL    time.Duration
	now         func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(authAdapter driven.AuthAdapter, tokenTTL time.Duration) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &authService{
		authAdapter: authAdapter,
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}
}

// ValidateToken validates a JWT token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	// Parse and validate JWT
	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	// Check expiration
	if claims.ExpiresAt > 0 && s.now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}
	if claims.UserID == "" {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.AuthContext{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

// IssueToken signs a token for userID valid for the configured TTL
func (s *authService) IssueToken(ctx context.Context, userID, email string) (string, error) {
	if userID == "" {
		return "", domain.ErrInvalidInput
	}
	now := s.now()
	return s.authAdapter.GenerateToken(&domain.TokenClaims{
		UserID:    userID,
		Email:     email,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.tokenTTL).Unix(),
	})
}
