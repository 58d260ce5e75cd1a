package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

func TestFeedbackService_RecordAndSummary(t *testing.T) {
	store := mocks.NewMockFeedbackStore()
	svc := NewFeedbackService(store)
	ctx := context.Background()

	for _, r := range []domain.Rating{"UP", domain.RatingUp, domain.RatingDown} {
		_, err := svc.Record(ctx, "user-1", driving.FeedbackRequest{Rating: r, MessageID: "m1"})
		require.NoError(t, err)
	}
	_, err := svc.Record(ctx, "user-2", driving.FeedbackRequest{Rating: domain.RatingDown})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Up)
	assert.Equal(t, 1, sum.Down)
	assert.Len(t, sum.Recent, 3)
}

func TestFeedbackService_Validation(t *testing.T) {
	store := mocks.NewMockFeedbackStore()
	svc := NewFeedbackService(store)

	_, err := svc.Record(context.Background(), "", driving.FeedbackRequest{Rating: domain.RatingUp})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Record(context.Background(), "user-1", driving.FeedbackRequest{Rating: "meh"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	fb, err := svc.Record(context.Background(), "user-1", driving.FeedbackRequest{
		Rating:  domain.RatingDown,
		Comment: strings.Repeat("x", maxFeedbackComment+10),
	})
	require.NoError(t, err)
	assert.Len(t, fb.Comment, maxFeedbackComment)
}
