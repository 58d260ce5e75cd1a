package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*MockDocumentStore)(nil)

// MockDocumentStore is an in-memory DocumentStore for testing.
// Full-text search matches documents containing every query word.
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
	byHash    map[string]string // key: connectorID:contentHash
	order     []string

	InsertFn         func(doc *domain.Document) (bool, string, error)
	SearchFullTextFn func(q domain.SearchQuery) ([]*domain.Document, []float64, error)
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.Document),
		byHash:    make(map[string]string),
	}
}

func (m *MockDocumentStore) InsertIfAbsent(ctx context.Context, doc *domain.Document) (bool, string, error) {
	if m.InsertFn != nil {
		return m.InsertFn(doc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := doc.ConnectorID + ":" + doc.ContentHash
	if id, ok := m.byHash[key]; ok {
		return false, id, nil
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	stored := *doc
	m.documents[doc.ID] = &stored
	m.byHash[key] = doc.ID
	m.order = append(m.order, doc.ID)
	return true, doc.ID, nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) SearchFullText(ctx context.Context, q domain.SearchQuery) ([]*domain.Document, []float64, error) {
	if m.SearchFullTextFn != nil {
		return m.SearchFullTextFn(q)
	}

	words := strings.Fields(strings.ToLower(q.Query))
	if len(words) == 0 {
		return nil, nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		doc  *domain.Document
		rank float64
	}
	var hits []scored
	for _, id := range m.order {
		doc := m.documents[id]
		if q.ConnectorID != "" && doc.ConnectorID != q.ConnectorID {
			continue
		}
		text := strings.ToLower(doc.Title + " " + doc.Content)
		rank := 0.0
		matched := true
		for _, w := range words {
			n := strings.Count(text, w)
			if n == 0 {
				matched = false
				break
			}
			rank += float64(n)
		}
		if matched {
			hits = append(hits, scored{doc: doc, rank: rank})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank > hits[j].rank })

	limit := q.NormalizedLimit()
	var docs []*domain.Document
	var ranks []float64
	for i := 0; i < len(hits) && i < limit; i++ {
		docs = append(docs, hits[i].doc)
		ranks = append(ranks, hits[i].rank)
	}
	return docs, ranks, nil
}

func (m *MockDocumentStore) SearchSubstring(ctx context.Context, q domain.SearchQuery) ([]*domain.Document, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Query))

	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []*domain.Document
	for _, id := range m.order {
		doc := m.documents[id]
		if q.ConnectorID != "" && doc.ConnectorID != q.ConnectorID {
			continue
		}
		if strings.Contains(strings.ToLower(doc.Title), needle) || strings.Contains(strings.ToLower(doc.Content), needle) {
			docs = append(docs, doc)
		}
		if len(docs) == q.NormalizedLimit() {
			break
		}
	}
	return docs, nil
}

func (m *MockDocumentStore) Count(ctx context.Context, connectorID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if connectorID == "" {
		return len(m.documents), nil
	}
	n := 0
	for _, doc := range m.documents {
		if doc.ConnectorID == connectorID {
			n++
		}
	}
	return n, nil
}
