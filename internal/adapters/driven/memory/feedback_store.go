package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FeedbackStore = (*FeedbackStore)(nil)

// feedbackKeep bounds the ratings kept per user.
const feedbackKeep = 100

type userFeedback struct {
	up, down int
	recent   []*domain.Feedback // oldest first
}

// FeedbackStore keeps ratings in process memory.
type FeedbackStore struct {
	mu    sync.Mutex
	users map[string]*userFeedback
}

// NewFeedbackStore creates an empty store.
func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{users: make(map[string]*userFeedback)}
}

// Record stores one rating.
func (s *FeedbackStore) Record(ctx context.Context, fb *domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[fb.UserID]
	if !ok {
		u = &userFeedback{}
		s.users[fb.UserID] = u
	}
	if fb.Rating == domain.RatingUp {
		u.up++
	} else {
		u.down++
	}
	cp := *fb
	u.recent = append(u.recent, &cp)
	if len(u.recent) > feedbackKeep {
		u.recent = u.recent[len(u.recent)-feedbackKeep:]
	}
	return nil
}

// Summary returns counts and up to recent latest ratings, newest first.
func (s *FeedbackStore) Summary(ctx context.Context, userID string, recent int) (*domain.FeedbackSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := &domain.FeedbackSummary{}
	u, ok := s.users[userID]
	if !ok {
		return summary, nil
	}
	summary.Up, summary.Down = u.up, u.down
	for i := len(u.recent) - 1; i >= 0 && len(summary.Recent) < recent; i-- {
		cp := *u.recent[i]
		summary.Recent = append(summary.Recent, &cp)
	}
	return summary, nil
}
