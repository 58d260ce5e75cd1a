package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"
)

// Document size and result bounds.
const (
	// MaxContentChars caps stored content to bound row size and token usage.
	MaxContentChars = 50000

	// DefaultSearchLimit and MaxSearchLimit bound search result sets.
	DefaultSearchLimit = 10
	MaxSearchLimit     = 20

	// SnippetChars is the length of the trimmed snippet returned with hits.
	SnippetChars = 300
)

// Document is an indexed piece of text owned by a connector.
// Documents are never mutated after creation.
type Document struct {
	ID          string         `json:"id"`
	ConnectorID string         `json:"connector_id"`
	SourceType  string         `json:"source_type"`
	SourceID    string         `json:"source_id"`
	Title       string         `json:"title"`
	Content     string         `json:"content,omitempty"`
	ContentHash string         `json:"content_hash"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// IngestItem is one document submitted for indexing.
type IngestItem struct {
	ConnectorID string         `json:"connector_id"`
	SourceType  string         `json:"source_type"`
	SourceID    string         `json:"source_id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// IngestError describes why one item of a batch failed.
type IngestError struct {
	Index    int    `json:"index"`
	SourceID string `json:"source_id,omitempty"`
	Error    string `json:"error"`
}

// IngestReport counts the outcome of a batch.
type IngestReport struct {
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Errored  int           `json:"errored"`
	IDs      []string      `json:"ids,omitempty"`
	Errors   []IngestError `json:"errors,omitempty"`
}

// SearchQuery is a free-text document search.
type SearchQuery struct {
	Query       string `json:"query"`
	ConnectorID string `json:"connector_id,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// NormalizedLimit clamps the limit into [1, MaxSearchLimit].
func (q SearchQuery) NormalizedLimit() int {
	if q.Limit <= 0 {
		return DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return q.Limit
}

// SearchMode records which search path produced the hits
type SearchMode string

const (
	SearchModeFullText  SearchMode = "fulltext"
	SearchModeSubstring SearchMode = "substring"
)

// SearchHit is a document match with a trimmed snippet.
// Full content is available through the document Get operation.
type SearchHit struct {
	ID          string     `json:"id"`
	ConnectorID string     `json:"connector_id"`
	SourceType  string     `json:"source_type"`
	SourceID    string     `json:"source_id"`
	Title       string     `json:"title"`
	Snippet     string     `json:"snippet"`
	Rank        float64    `json:"rank"`
	CreatedAt   time.Time  `json:"created_at"`
	Mode        SearchMode `json:"mode"`
}

// SearchResult wraps hits with the path that produced them.
type SearchResult struct {
	Query string       `json:"query"`
	Mode  SearchMode   `json:"mode"`
	Hits  []*SearchHit `json:"hits"`
}

// ContentHash is the deduplication key for a document under one connector.
// It covers the stable identifying fields and never a timestamp.
func ContentHash(sourceType, sourceID, title, content string) string {
	h := sha256.New()
	for i, part := range []string{sourceType, sourceID, title, content} {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(strings.TrimSpace(part)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TruncateContent caps content at MaxContentChars characters without
// splitting a multi-byte rune.
func TruncateContent(content string) string {
	if utf8.RuneCountInString(content) <= MaxContentChars {
		return content
	}
	n := 0
	for i := range content {
		if n == MaxContentChars {
			return content[:i]
		}
		n++
	}
	return content
}
