package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// Ensure connectorService implements ConnectorService
var _ driving.ConnectorService = (*connectorService)(nil)

// ConnectorServiceConfig holds dependencies for the connector API.
type ConnectorServiceConfig struct {
	Registry driven.ConnectorRegistry
	Resolver *CredentialResolver
	Store    driven.UserConnectorStore
	Logger   *slog.Logger
}

type connectorService struct {
	registry driven.ConnectorRegistry
	resolver *CredentialResolver
	store    driven.UserConnectorStore
	logger   *slog.Logger
}

// NewConnectorService creates the direct connector API.
func NewConnectorService(cfg ConnectorServiceConfig) driving.ConnectorService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &connectorService{
		registry: cfg.Registry,
		resolver: cfg.Resolver,
		store:    cfg.Store,
		logger:   logger.With("component", "connector_api"),
	}
}

// Execute resolves credentials (request config first) and runs one action.
func (s *connectorService) Execute(ctx context.Context, userID string, req driving.ExecuteRequest) *domain.Result {
	t, ok := domain.ParseConnectorType(req.Connector)
	if !ok {
		return domain.Fail(fmt.Errorf("%w: unknown connector %q", domain.ErrUnknownTool, req.Connector))
	}
	conn, err := s.registry.Get(t)
	if err != nil {
		return domain.Fail(fmt.Errorf("%w: connector %q is not available", domain.ErrUnknownTool, req.Connector))
	}

	action := strings.TrimSpace(req.Action)
	if !hasAction(conn, action) {
		return domain.Fail(fmt.Errorf("%w: %s does not support %q", domain.ErrUnknownAction, t, req.Action))
	}

	user := domain.UserContext{UserID: userID}
	if len(req.Config) > 0 {
		user.Sources = []domain.ConnectedSource{{Type: t, Config: req.Config}}
	}
	creds, err := s.resolver.Resolve(ctx, t, user)
	if err != nil {
		return domain.Fail(err)
	}

	params := req.Params
	if params == nil {
		params = map[string]any{}
	}
	res := conn.Execute(ctx, action, params, creds)
	if res == nil {
		res = domain.Fail(fmt.Errorf("%s %s returned no result", t, action))
	}
	if !res.Success {
		s.logger.Warn("connector action failed", "connector", t, "action", action, "kind", res.Kind, "error", res.Error)
	}
	return res
}

// Connections lists the user's stored connectors without secrets.
func (s *connectorService) Connections(ctx context.Context, userID string) ([]*domain.UserConnector, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	rows, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list connectors: %w", err)
	}
	out := make([]*domain.UserConnector, 0, len(rows))
	for _, row := range rows {
		cp := *row
		cp.Config, _ = domain.SplitSecrets(row.Config)
		cp.OAuthTokens = nil
		out = append(out, &cp)
	}
	return out, nil
}

func hasAction(c driven.Connector, action string) bool {
	for _, a := range c.Actions() {
		if a == action {
			return true
		}
	}
	return false
}
