package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, connector_id, source_type, source_id, title, content, content_hash, metadata, created_at`

// InsertIfAbsent stores doc unless (connector_id, content_hash) exists.
func (s *DocumentStore) InsertIfAbsent(ctx context.Context, doc *domain.Document) (bool, string, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return false, "", fmt.Errorf("marshal metadata: %w", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (connector_id, content_hash) DO NOTHING
		RETURNING id
	`,
		doc.ID,
		doc.ConnectorID,
		doc.SourceType,
		doc.SourceID,
		doc.Title,
		doc.Content,
		doc.ContentHash,
		metadataJSON,
		doc.CreatedAt,
	).Scan(&id)
	if err == nil {
		return true, id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, "", fmt.Errorf("insert document: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE connector_id = $1 AND content_hash = $2`,
		doc.ConnectorID, doc.ContentHash,
	).Scan(&id)
	if err != nil {
		return false, "", fmt.Errorf("find existing document: %w", err)
	}
	return false, id, nil
}

// Get retrieves a document with full content
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// SearchFullText ranks matches of a web-search style query.
func (s *DocumentStore) SearchFullText(ctx context.Context, q domain.SearchQuery) ([]*domain.Document, []float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`, ts_rank(search_vector, query) AS rank
		FROM documents, websearch_to_tsquery('english', $1) AS query
		WHERE search_vector @@ query
		  AND ($2 = '' OR connector_id = $2)
		ORDER BY rank DESC, created_at DESC
		LIMIT $3
	`, q.Query, q.ConnectorID, q.NormalizedLimit())
	if err != nil {
		return nil, nil, fmt.Errorf("full-text search: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	var ranks []float64
	for rows.Next() {
		var rank float64
		doc, err := scanDocument(rows, &rank)
		if err != nil {
			return nil, nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
		ranks = append(ranks, rank)
	}
	return docs, ranks, rows.Err()
}

// SearchSubstring matches the query literally in title or content.
func (s *DocumentStore) SearchSubstring(ctx context.Context, q domain.SearchQuery) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE (title ILIKE $1 ESCAPE '\' OR content ILIKE $1 ESCAPE '\')
		  AND ($2 = '' OR connector_id = $2)
		ORDER BY (title ILIKE $1 ESCAPE '\') DESC, created_at DESC
		LIMIT $3
	`, likePattern(q.Query), q.ConnectorID, q.NormalizedLimit())
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Count returns the number of documents, optionally for one connector
func (s *DocumentStore) Count(ctx context.Context, connectorID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE $1 = '' OR connector_id = $1`, connectorID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func scanDocument(row scanner, extra ...any) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON []byte
	dest := append([]any{
		&doc.ID,
		&doc.ConnectorID,
		&doc.SourceType,
		&doc.SourceID,
		&doc.Title,
		&doc.Content,
		&doc.ContentHash,
		&metadataJSON,
		&doc.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}
