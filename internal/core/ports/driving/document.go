package driving

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// DocumentService indexes and searches uploaded documents
type DocumentService interface {
	// Ingest indexes a batch. Per-item failures are counted, never returned.
	Ingest(ctx context.Context, userID string, items []domain.IngestItem) (*domain.IngestReport, error)

	// Upload extracts text from a file and indexes it
	Upload(ctx context.Context, userID string, req UploadRequest) (*domain.IngestReport, error)

	// Search runs a keyword search with substring fallback
	Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error)

	// Get retrieves a document with full content
	Get(ctx context.Context, id string) (*domain.Document, error)
}

// UploadRequest is a single uploaded file.
type UploadRequest struct {
	ConnectorID string
	Filename    string
	ContentType string
	Data        []byte
	Metadata    map[string]any
}
