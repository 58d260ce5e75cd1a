package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FeedbackStore = (*FeedbackStore)(nil)

const (
	feedbackPrefix = keyPrefix + "feedback:"

	// feedbackKeep bounds the per-user list of stored ratings.
	feedbackKeep = 100
)

// FeedbackStore keeps per-user rating counters and a bounded list of the
// latest ratings, newest first.
//
// Keys:
//
//	feedback:<user>:counts  hash {up, down}
//	feedback:<user>:recent  list of JSON entries
type FeedbackStore struct {
	client redis.UniversalClient
}

// NewFeedbackStore creates a Redis-backed feedback store.
func NewFeedbackStore(client redis.UniversalClient) *FeedbackStore {
	return &FeedbackStore{client: client}
}

func countsKey(userID string) string { return feedbackPrefix + userID + ":counts" }
func recentKey(userID string) string { return feedbackPrefix + userID + ":recent" }

// Record stores one rating.
func (s *FeedbackStore) Record(ctx context.Context, fb *domain.Feedback) error {
	data, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, countsKey(fb.UserID), string(fb.Rating), 1)
	pipe.LPush(ctx, recentKey(fb.UserID), data)
	pipe.LTrim(ctx, recentKey(fb.UserID), 0, feedbackKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}

// Summary returns the counters and up to recent latest ratings.
func (s *FeedbackStore) Summary(ctx context.Context, userID string, recent int) (*domain.FeedbackSummary, error) {
	pipe := s.client.Pipeline()
	counts := pipe.HGetAll(ctx, countsKey(userID))
	var latest *redis.StringSliceCmd
	if recent > 0 {
		latest = pipe.LRange(ctx, recentKey(userID), 0, int64(recent-1))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("feedback summary: %w", err)
	}

	summary := &domain.FeedbackSummary{}
	for rating, n := range counts.Val() {
		var v int
		if _, err := fmt.Sscan(n, &v); err != nil {
			continue
		}
		switch domain.Rating(rating) {
		case domain.RatingUp:
			summary.Up = v
		case domain.RatingDown:
			summary.Down = v
		}
	}
	if latest == nil {
		return summary, nil
	}
	for _, raw := range latest.Val() {
		var fb domain.Feedback
		if err := json.Unmarshal([]byte(raw), &fb); err != nil {
			continue
		}
		summary.Recent = append(summary.Recent, &fb)
	}
	return summary, nil
}
