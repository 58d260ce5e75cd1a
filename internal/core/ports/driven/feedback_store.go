package driven

import (
	"context"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

// FeedbackStore persists answer ratings.
type FeedbackStore interface {
	// Record stores one rating
	Record(ctx context.Context, fb *domain.Feedback) error

	// Summary counts a user's ratings and returns up to recent latest entries
	Summary(ctx context.Context, userID string, recent int) (*domain.FeedbackSummary, error)
}
