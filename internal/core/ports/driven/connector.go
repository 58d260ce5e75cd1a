package driven

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// Connector translates a normalized (action, params, credentials) triple into
// calls against one external system. Execute never returns a raw transport
// error: every failure is reported through the Result.
type Connector interface {
	// Type returns the connector type.
	Type() domain.ConnectorType

	// Actions returns the supported action names, testConnection included.
	Actions() []string

	// Execute runs one action. Unknown actions fail with ErrUnknownAction.
	Execute(ctx context.Context, action string, params map[string]any, creds *domain.Credentials) *domain.Result
}

// ConnectorRegistry holds one adapter per connector type.
type ConnectorRegistry interface {
	// Register adds or replaces the adapter for its type.
	Register(connector Connector)

	// Get returns the adapter for a connector type.
	Get(connectorType domain.ConnectorType) (Connector, error)

	// Types returns registered connector types.
	Types() []domain.ConnectorType
}

// ContentExtractor extracts text content from various file formats
type ContentExtractor interface {
	// Extract extracts text content from raw data
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)

	// SupportedTypes returns supported MIME types
	SupportedTypes() []string
}
