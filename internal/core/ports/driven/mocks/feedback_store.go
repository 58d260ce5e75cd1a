package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

var _ driven.FeedbackStore = (*MockFeedbackStore)(nil)

// MockFeedbackStore records feedback in a slice.
type MockFeedbackStore struct {
	mu       sync.Mutex
	Recorded []*domain.Feedback
	RecordFn func(fb *domain.Feedback) error
}

// NewMockFeedbackStore creates a new MockFeedbackStore
func NewMockFeedbackStore() *MockFeedbackStore {
	return &MockFeedbackStore{}
}

func (m *MockFeedbackStore) Record(ctx context.Context, fb *domain.Feedback) error {
	if m.RecordFn != nil {
		return m.RecordFn(fb)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recorded = append(m.Recorded, fb)
	return nil
}

func (m *MockFeedbackStore) Summary(ctx context.Context, userID string, recent int) (*domain.FeedbackSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &domain.FeedbackSummary{}
	for i := len(m.Recorded) - 1; i >= 0; i-- {
		fb := m.Recorded[i]
		if fb.UserID != userID {
			continue
		}
		if fb.Rating == domain.RatingUp {
			s.Up++
		} else {
			s.Down++
		}
		if len(s.Recent) < recent {
			s.Recent = append(s.Recent, fb)
		}
	}
	return s, nil
}
