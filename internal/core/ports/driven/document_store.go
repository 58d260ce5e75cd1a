package driven

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// DocumentStore persists indexed documents
type DocumentStore interface {
	// InsertIfAbsent stores the document unless a row with the same
	// (connector_id, content_hash) exists. Returns whether a row was inserted
	// and the id of the stored (or existing) document.
	InsertIfAbsent(ctx context.Context, doc *domain.Document) (inserted bool, id string, err error)

	// Get retrieves a document with full content
	Get(ctx context.Context, id string) (*domain.Document, error)

	// SearchFullText runs the ranked keyword search
	SearchFullText(ctx context.Context, q domain.SearchQuery) ([]*domain.Document, []float64, error)

	// SearchSubstring runs the case-insensitive substring match on title and content
	SearchSubstring(ctx context.Context, q domain.SearchQuery) ([]*domain.Document, error)

	// Count returns the number of documents, optionally for one connector
	Count(ctx context.Context, connectorID string) (int, error)
}
