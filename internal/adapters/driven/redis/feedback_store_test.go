package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

func feedback(user string, i int, rating domain.Rating) *domain.Feedback {
	return &domain.Feedback{
		ID:             fmt.Sprintf("fb-%d", i),
		UserID:         user,
		ConversationID: "conv-1",
		Rating:         rating,
		CreatedAt:      time.Date(2026, 3, 2, 9, i, 0, 0, time.UTC),
	}
}

func TestFeedbackStore_Summary(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewFeedbackStore(client)
	ctx := context.Background()

	ratings := []domain.Rating{domain.RatingUp, domain.RatingUp, domain.RatingDown, domain.RatingUp}
	for i, r := range ratings {
		if err := store.Record(ctx, feedback("u1", i, r)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if err := store.Record(ctx, feedback("u2", 9, domain.RatingDown)); err != nil {
		t.Fatalf("record: %v", err)
	}

	summary, err := store.Summary(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Up != 3 || summary.Down != 1 {
		t.Errorf("counts = up %d down %d, want 3/1", summary.Up, summary.Down)
	}
	if len(summary.Recent) != 2 {
		t.Fatalf("recent = %d entries, want 2", len(summary.Recent))
	}
	if summary.Recent[0].ID != "fb-3" || summary.Recent[1].ID != "fb-2" {
		t.Errorf("recent should be newest first, got %s, %s", summary.Recent[0].ID, summary.Recent[1].ID)
	}
}

func TestFeedbackStore_EmptyUser(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewFeedbackStore(client)

	summary, err := store.Summary(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Up != 0 || summary.Down != 0 || len(summary.Recent) != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}

func TestFeedbackStore_TrimsHistory(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewFeedbackStore(client)
	ctx := context.Background()

	for i := 0; i < feedbackKeep+5; i++ {
		if err := store.Record(ctx, feedback("u1", i%60, domain.RatingUp)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	list, err := mr.List(recentKey("u1"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != feedbackKeep {
		t.Errorf("kept %d entries, want %d", len(list), feedbackKeep)
	}

	summary, _ := store.Summary(ctx, "u1", 0)
	if summary.Up != feedbackKeep+5 {
		t.Errorf("counter should not be trimmed, got %d", summary.Up)
	}
	if summary.Recent != nil {
		t.Error("recent=0 should return no entries")
	}
}
