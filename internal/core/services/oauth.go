package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// OAuthServiceConfig holds configuration for the OAuth service.
type OAuthServiceConfig struct {
	// Store persists the user's connector rows.
	Store driven.UserConnectorStore

	// Resolver returns fresh tokens and performs forced refreshes.
	Resolver *CredentialResolver

	Logger *slog.Logger
	Now    func() time.Time
}

// oauthService implements the OAuthService interface.
type oauthService struct {
	store    driven.UserConnectorStore
	resolver *CredentialResolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &oauthService{
		store:    cfg.Store,
		resolver: cfg.Resolver,
		logger:   logger.With("component", "oauth"),
		now:      now,
	}
}

// Handle runs one token action on the caller's own row.
func (s *oauthService) Handle(ctx context.Context, userID string, req driving.OAuthRequest) (*driving.OAuthResponse, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	t, ok := domain.ParseConnectorType(req.ConnectorID)
	if !ok || t.Internal() {
		return nil, fmt.Errorf("%w: unknown connector %q", domain.ErrInvalidInput, req.ConnectorID)
	}

	switch req.Action {
	case driving.OAuthActionSaveTokens:
		return s.saveTokens(ctx, userID, t, req)
	case driving.OAuthActionGetToken:
		return s.getToken(ctx, userID, t)
	case driving.OAuthActionRefreshToken:
		return s.refreshToken(ctx, userID, t)
	case driving.OAuthActionRevoke:
		return s.revoke(ctx, userID, t)
	}
	return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, req.Action)
}

func (s *oauthService) saveTokens(ctx context.Context, userID string, t domain.ConnectorType, req driving.OAuthRequest) (*driving.OAuthResponse, error) {
	if strings.TrimSpace(req.AccessToken) == "" {
		return nil, fmt.Errorf("%w: accessToken is required", domain.ErrInvalidInput)
	}

	now := s.now()
	row, err := s.store.Get(ctx, userID, t)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		row = &domain.UserConnector{UserID: userID, ConnectorID: t, CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("load connector: %w", err)
	}

	cfg := make(map[string]string, len(row.Config)+len(req.Config)+1)
	for k, v := range row.Config {
		cfg[k] = v
	}
	for k, v := range req.Config {
		cfg[k] = v
	}
	if req.Email != "" {
		cfg[domain.ConfigEmail] = req.Email
	}

	tokens := &domain.OAuthTokenSet{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}
	if req.ExpiresAt != nil {
		tokens.ExpiresAt = *req.ExpiresAt
	}
	// Providers that do not rotate refresh tokens omit them on re-consent.
	if tokens.RefreshToken == "" && row.OAuthTokens != nil {
		tokens.RefreshToken = row.OAuthTokens.RefreshToken
	}

	row.Config = cfg
	row.OAuthTokens = tokens
	row.Status = domain.ConnectorStatusConnected
	row.UpdatedAt = now
	if err := s.store.Save(ctx, row); err != nil {
		return nil, fmt.Errorf("save connector: %w", err)
	}

	s.logger.Info("connector tokens saved", "user_id", userID, "connector", t, "has_refresh_token", tokens.RefreshToken != "")
	return &driving.OAuthResponse{
		Success:     true,
		ConnectorID: t,
		ExpiresAt:   expiryPtr(tokens.ExpiresAt),
		Status:      row.Status,
	}, nil
}

func (s *oauthService) getToken(ctx context.Context, userID string, t domain.ConnectorType) (*driving.OAuthResponse, error) {
	creds, err := s.resolver.Resolve(ctx, t, domain.UserContext{UserID: userID})
	if err != nil {
		return nil, err
	}
	if creds.Origin != domain.OriginUser || creds.AccessToken == "" {
		return nil, fmt.Errorf("%w: no OAuth token stored for %s", domain.ErrNotFound, t.DisplayName())
	}
	return &driving.OAuthResponse{
		Success:     true,
		ConnectorID: t,
		AccessToken: creds.AccessToken,
		ExpiresAt:   creds.TokenExpiry,
		Status:      domain.ConnectorStatusConnected,
	}, nil
}

func (s *oauthService) refreshToken(ctx context.Context, userID string, t domain.ConnectorType) (*driving.OAuthResponse, error) {
	tokens, err := s.resolver.ForceRefresh(ctx, userID, t)
	if err != nil {
		s.logger.Warn("forced token refresh failed", "user_id", userID, "connector", t, "error", err)
		return nil, err
	}
	return &driving.OAuthResponse{
		Success:     true,
		ConnectorID: t,
		AccessToken: tokens.AccessToken,
		ExpiresAt:   expiryPtr(tokens.ExpiresAt),
		Status:      domain.ConnectorStatusConnected,
	}, nil
}

func (s *oauthService) revoke(ctx context.Context, userID string, t domain.ConnectorType) (*driving.OAuthResponse, error) {
	if err := s.store.Delete(ctx, userID, t); err != nil {
		return nil, fmt.Errorf("delete connector: %w", err)
	}
	s.logger.Info("connector revoked", "user_id", userID, "connector", t)
	return &driving.OAuthResponse{
		Success:     true,
		ConnectorID: t,
		Status:      domain.ConnectorStatusDisconnected,
	}, nil
}

func expiryPtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
