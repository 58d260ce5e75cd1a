package driving

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// FeedbackService records answer ratings
type FeedbackService interface {
	Record(ctx context.Context, userID string, req FeedbackRequest) (*domain.Feedback, error)
	Summary(ctx context.Context, userID string) (*domain.FeedbackSummary, error)
}

// FeedbackRequest rates one assistant answer.
// @Description Answer rating
type FeedbackRequest struct {
	ConversationID string        `json:"conversationId,omitempty"`
	MessageID      string        `json:"messageId,omitempty"`
	Rating         domain.Rating `json:"rating" example:"up"`
	Comment        string        `json:"comment,omitempty"`
}
