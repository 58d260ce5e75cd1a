package redis

import (
	"context"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
)

func TestTokenCache_PutGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewTokenCache(client, nil)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "github:abc"); ok {
		t.Fatal("expected miss on empty cache")
	}

	tokens := &domain.OAuthTokenSet{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
	}
	if err := cache.Put(ctx, "github:abc", tokens); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok := cache.Get(ctx, "github:abc")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.AccessToken != "new-access" || !got.ExpiresAt.Equal(tokens.ExpiresAt) {
		t.Errorf("unexpected tokens %+v", got)
	}

	ttl := mr.TTL(tokenPrefix + "github:abc")
	if ttl <= 59*time.Minute || ttl > time.Hour {
		t.Errorf("ttl should follow token expiry, got %v", ttl)
	}
}

func TestTokenCache_ExpiredEntryIsMiss(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewTokenCache(client, nil)
	ctx := context.Background()

	data := `{"access_token":"old","expires_at":"2020-01-01T00:00:00Z"}`
	mr.Set(tokenPrefix+"k", data)

	if _, ok := cache.Get(ctx, "k"); ok {
		t.Error("expected expired token set to be a miss")
	}
}

func TestTokenCache_UnreadableEntryIsMiss(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewTokenCache(client, nil)

	mr.Set(tokenPrefix+"k", "{not json")
	if _, ok := cache.Get(context.Background(), "k"); ok {
		t.Error("expected miss")
	}
}

func TestTokenCache_ServerDownIsMiss(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewTokenCache(client, nil)
	mr.Close()

	if _, ok := cache.Get(context.Background(), "k"); ok {
		t.Error("expected miss")
	}
	if err := cache.Put(context.Background(), "k", &domain.OAuthTokenSet{AccessToken: "a"}); err == nil {
		t.Error("expected put error")
	}
}

func TestTokenTTL(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		expires time.Time
		want    time.Duration
	}{
		{"no expiry", time.Time{}, maxTokenTTL},
		{"soon", now.Add(10 * time.Second), minTokenTTL},
		{"far", now.Add(48 * time.Hour), maxTokenTTL},
		{"normal", now.Add(time.Hour), time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenTTL(&domain.OAuthTokenSet{ExpiresAt: tt.expires}, now)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
