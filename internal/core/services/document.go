package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// MaxUploadBytes caps a single uploaded file.
const MaxUploadBytes = 10 << 20

// documentService implements the DocumentService interface
type documentService struct {
	documentStore  driven.DocumentStore
	connectorStore driven.UserConnectorStore
	extractor      driven.ContentExtractor
	logger         *slog.Logger
	now            func() time.Time
}

// DocumentServiceConfig holds dependencies for the document service.
type DocumentServiceConfig struct {
	DocumentStore driven.DocumentStore

	// ConnectorStore receives last_synced_at updates. Optional.
	ConnectorStore driven.UserConnectorStore

	// Extractor handles uploads that are not plain text. Optional.
	Extractor driven.ContentExtractor

	Logger *slog.Logger
	Now    func() time.Time
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(cfg DocumentServiceConfig) driving.DocumentService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &documentService{
		documentStore:  cfg.DocumentStore,
		connectorStore: cfg.ConnectorStore,
		extractor:      cfg.Extractor,
		logger:         logger.With("component", "documents"),
		now:            now,
	}
}

// Get retrieves a document by ID
func (s *documentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	return s.documentStore.Get(ctx, id)
}

// Ingest indexes each item independently. Duplicates of an existing
// (connector_id, content_hash) are skipped.
func (s *documentService) Ingest(ctx context.Context, userID string, items []domain.IngestItem) (*domain.IngestReport, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no documents to ingest", domain.ErrInvalidInput)
	}

	report := &domain.IngestReport{}
	touched := make(map[domain.ConnectorType]bool)
	now := s.now()

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := validateIngestItem(item); err != nil {
			report.Errored++
			report.Errors = append(report.Errors, domain.IngestError{Index: i, SourceID: item.SourceID, Error: err.Error()})
			continue
		}

		content := domain.TruncateContent(item.Content)
		doc := &domain.Document{
			ConnectorID: item.ConnectorID,
			SourceType:  item.SourceType,
			SourceID:    item.SourceID,
			Title:       strings.TrimSpace(item.Title),
			Content:     content,
			ContentHash: domain.ContentHash(item.SourceType, item.SourceID, item.Title, content),
			Metadata:    item.Metadata,
			CreatedAt:   now,
		}

		inserted, id, err := s.documentStore.InsertIfAbsent(ctx, doc)
		if err != nil {
			s.logger.Warn("ingest document", "index", i, "source_id", item.SourceID, "error", err)
			report.Errored++
			report.Errors = append(report.Errors, domain.IngestError{Index: i, SourceID: item.SourceID, Error: err.Error()})
			continue
		}
		if inserted {
			report.Inserted++
			report.IDs = append(report.IDs, id)
		} else {
			report.Skipped++
		}
		if t, ok := domain.ParseConnectorType(item.ConnectorID); ok {
			touched[t] = true
		}
	}

	s.touchSynced(ctx, userID, touched, now)
	s.logger.Info("ingest complete",
		"user_id", userID,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"errored", report.Errored,
	)
	return report, nil
}

func (s *documentService) touchSynced(ctx context.Context, userID string, touched map[domain.ConnectorType]bool, at time.Time) {
	if s.connectorStore == nil || userID == "" {
		return
	}
	for t := range touched {
		if err := s.connectorStore.TouchSynced(ctx, userID, t, at); err != nil {
			s.logger.Warn("touch last synced", "user_id", userID, "connector", t, "error", err)
		}
	}
}

func validateIngestItem(item domain.IngestItem) error {
	switch {
	case strings.TrimSpace(item.ConnectorID) == "":
		return fmt.Errorf("%w: connector_id is required", domain.ErrValidation)
	case strings.TrimSpace(item.Title) == "" && strings.TrimSpace(item.Content) == "":
		return fmt.Errorf("%w: title or content is required", domain.ErrValidation)
	case !utf8.ValidString(item.Content) || !utf8.ValidString(item.Title):
		return fmt.Errorf("%w: content is not valid UTF-8", domain.ErrValidation)
	}
	return nil
}

// Upload extracts text from a file and ingests it as one document.
func (s *documentService) Upload(ctx context.Context, userID string, req driving.UploadRequest) (*domain.IngestReport, error) {
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrInvalidInput)
	}
	if len(req.Data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, MaxUploadBytes)
	}

	mimeType := uploadMimeType(req.Filename, req.ContentType)
	content, err := s.extract(ctx, req.Data, mimeType)
	if err != nil {
		return nil, err
	}

	connectorID := req.ConnectorID
	if connectorID == "" {
		connectorID = string(domain.ConnectorDocuments)
	}
	metadata := map[string]any{"filename": req.Filename, "mime_type": mimeType, "size": len(req.Data)}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	return s.Ingest(ctx, userID, []domain.IngestItem{{
		ConnectorID: connectorID,
		SourceType:  "upload",
		SourceID:    req.Filename,
		Title:       strings.TrimSuffix(filepath.Base(req.Filename), filepath.Ext(req.Filename)),
		Content:     content,
		Metadata:    metadata,
	}})
}

func (s *documentService) extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	switch mimeType {
	case "text/plain", "text/markdown", "text/csv":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: file is not valid UTF-8 text", domain.ErrInvalidInput)
		}
		return string(data), nil
	case "application/json":
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return "", fmt.Errorf("%w: invalid JSON: %v", domain.ErrInvalidInput, err)
		}
		pretty, _ := json.MarshalIndent(v, "", "  ")
		return string(pretty), nil
	}

	if s.extractor == nil || !supports(s.extractor, mimeType) {
		return "", fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidInput, mimeType)
	}
	text, err := s.extractor.Extract(ctx, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("%w: extract %s: %v", domain.ErrInvalidInput, mimeType, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text found in file", domain.ErrInvalidInput)
	}
	return text, nil
}

func supports(e driven.ContentExtractor, mimeType string) bool {
	for _, t := range e.SupportedTypes() {
		if t == mimeType {
			return true
		}
	}
	return false
}

// uploadMimeType prefers the file extension over the client-sent type,
// which browsers often report as application/octet-stream.
func uploadMimeType(filename, contentType string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", ".text", ".log":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	case ".html", ".htm":
		return "text/html"
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Search runs the ranked full-text search and falls back to a substring
// match when it fails or finds nothing.
func (s *documentService) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	q.Limit = q.NormalizedLimit()

	docs, ranks, err := s.documentStore.SearchFullText(ctx, q)
	if err != nil {
		s.logger.Warn("full-text search failed, using substring match", "query", q.Query, "error", err)
	}
	if err == nil && len(docs) > 0 {
		return buildSearchResult(q, domain.SearchModeFullText, docs, ranks), nil
	}

	docs, err = s.documentStore.SearchSubstring(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return buildSearchResult(q, domain.SearchModeSubstring, docs, nil), nil
}

func buildSearchResult(q domain.SearchQuery, mode domain.SearchMode, docs []*domain.Document, ranks []float64) *domain.SearchResult {
	res := &domain.SearchResult{Query: q.Query, Mode: mode, Hits: make([]*domain.SearchHit, 0, len(docs))}
	for i, doc := range docs {
		if i == q.Limit {
			break
		}
		hit := &domain.SearchHit{
			ID:          doc.ID,
			ConnectorID: doc.ConnectorID,
			SourceType:  doc.SourceType,
			SourceID:    doc.SourceID,
			Title:       doc.Title,
			Snippet:     Snippet(doc.Content, q.Query),
			CreatedAt:   doc.CreatedAt,
			Mode:        mode,
		}
		if i < len(ranks) {
			hit.Rank = ranks[i]
		}
		res.Hits = append(res.Hits, hit)
	}
	return res
}

// Snippet returns at most domain.SnippetChars runes of content centred on
// the first occurrence of any query word.
func Snippet(content, query string) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= domain.SnippetChars {
		return content
	}

	// Fold rune by rune so match offsets index runes directly.
	folded := make([]rune, len(runes))
	for i, r := range runes {
		folded[i] = unicode.ToLower(r)
	}
	at := -1
	for _, w := range strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		word := []rune(w)
		for i, r := range word {
			word[i] = unicode.ToLower(r)
		}
		if i := runeIndex(folded, word); i >= 0 && (at < 0 || i < at) {
			at = i
		}
	}

	start := 0
	if at > 0 {
		start = at - domain.SnippetChars/3
		if start < 0 {
			start = 0
		}
	}
	end := start + domain.SnippetChars
	if end > len(runes) {
		end = len(runes)
		start = end - domain.SnippetChars
	}
	return string(runes[start:end])
}

func runeIndex(s, sub []rune) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j, r := range sub {
			if s[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
