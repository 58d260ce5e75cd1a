package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// Ensure feedbackService implements FeedbackService
var _ driving.FeedbackService = (*feedbackService)(nil)

const (
	maxFeedbackComment = 2000
	recentFeedback     = 10
)

type feedbackService struct {
	store driven.FeedbackStore
	now   func() time.Time
}

// NewFeedbackService creates a FeedbackService over store.
func NewFeedbackService(store driven.FeedbackStore) driving.FeedbackService {
	return &feedbackService{store: store, now: time.Now}
}

func (s *feedbackService) Record(ctx context.Context, userID string, req driving.FeedbackRequest) (*domain.Feedback, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	rating := domain.Rating(strings.ToLower(string(req.Rating)))
	if rating != domain.RatingUp && rating != domain.RatingDown {
		return nil, fmt.Errorf("%w: rating must be up or down", domain.ErrInvalidInput)
	}
	comment := strings.TrimSpace(req.Comment)
	if len([]rune(comment)) > maxFeedbackComment {
		comment = string([]rune(comment)[:maxFeedbackComment])
	}

	fb := &domain.Feedback{
		ID:             uuid.New().String(),
		UserID:         userID,
		ConversationID: req.ConversationID,
		MessageID:      req.MessageID,
		Rating:         rating,
		Comment:        comment,
		CreatedAt:      s.now(),
	}
	if err := s.store.Record(ctx, fb); err != nil {
		return nil, fmt.Errorf("record feedback: %w", err)
	}
	return fb, nil
}

func (s *feedbackService) Summary(ctx context.Context, userID string) (*domain.FeedbackSummary, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.store.Summary(ctx, userID, recentFeedback)
}
