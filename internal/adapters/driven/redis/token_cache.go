package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TokenCache = (*TokenCache)(nil)

const tokenPrefix = keyPrefix + "token:"

// Cached token sets live until their access token expires, bounded below
// and above.
const (
	minTokenTTL = time.Minute
	maxTokenTTL = 12 * time.Hour
)

// TokenCache shares refreshed OAuth token sets between instances. Errors
// degrade to misses.
type TokenCache struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewTokenCache creates a Redis-backed token cache.
func NewTokenCache(client redis.UniversalClient, logger *slog.Logger) *TokenCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenCache{client: client, logger: logger.With("component", "token_cache")}
}

// Get returns the cached token set for key.
func (c *TokenCache) Get(ctx context.Context, key string) (*domain.OAuthTokenSet, bool) {
	data, err := c.client.Get(ctx, tokenPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("token cache read failed", "error", err)
		}
		return nil, false
	}
	var tokens domain.OAuthTokenSet
	if err := json.Unmarshal(data, &tokens); err != nil {
		c.logger.Warn("token cache entry unreadable", "error", err)
		return nil, false
	}
	if tokens.IsExpired() {
		return nil, false
	}
	return &tokens, true
}

// Put stores tokens under key.
func (c *TokenCache) Put(ctx context.Context, key string, tokens *domain.OAuthTokenSet) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := c.client.Set(ctx, tokenPrefix+key, data, tokenTTL(tokens, time.Now())).Err(); err != nil {
		return fmt.Errorf("cache tokens: %w", err)
	}
	return nil
}

func tokenTTL(tokens *domain.OAuthTokenSet, now time.Time) time.Duration {
	if tokens.ExpiresAt.IsZero() {
		return maxTokenTTL
	}
	ttl := tokens.ExpiresAt.Sub(now)
	if ttl < minTokenTTL {
		return minTokenTTL
	}
	if ttl > maxTokenTTL {
		return maxTokenTTL
	}
	return ttl
}
