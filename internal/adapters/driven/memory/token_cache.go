// Package memory holds in-process implementations of the shared-state
// ports for single-instance deployments. State is lost on restart and is
// not shared between instances.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TokenCache = (*TokenCache)(nil)

// maxTokenEntries bounds the cache; expired entries are swept first.
const maxTokenEntries = 10000

// TokenCache is a process-wide map of refreshed token sets.
type TokenCache struct {
	mu      sync.Mutex
	entries map[string]*domain.OAuthTokenSet
}

// NewTokenCache creates an empty cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{entries: make(map[string]*domain.OAuthTokenSet)}
}

// Get returns an unexpired token set.
func (c *TokenCache) Get(ctx context.Context, key string) (*domain.OAuthTokenSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if ts.IsExpired() {
		delete(c.entries, key)
		return nil, false
	}
	cp := *ts
	return &cp, true
}

// Put stores a copy of tokens.
func (c *TokenCache) Put(ctx context.Context, key string, tokens *domain.OAuthTokenSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= maxTokenEntries {
		c.sweep()
	}
	cp := *tokens
	c.entries[key] = &cp
	return nil
}

// Len returns the number of cached entries.
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweep drops expired entries, then arbitrary ones while still full.
func (c *TokenCache) sweep() {
	for k, ts := range c.entries {
		if ts.IsExpired() {
			delete(c.entries, k)
		}
	}
	for k := range c.entries {
		if len(c.entries) < maxTokenEntries {
			return
		}
		delete(c.entries, k)
	}
}

// Lock is an in-process RefreshLock with TTLs.
type Lock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// Verify interface compliance
var _ driven.RefreshLock = (*Lock)(nil)

// NewLock creates an in-process lock table.
func NewLock() *Lock {
	return &Lock{held: make(map[string]time.Time), clock: time.Now}
}

// Acquire takes name unless an unexpired holder exists.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if until, ok := l.held[name]; ok && now.Before(until) {
		return false, nil
	}
	l.held[name] = now.Add(ttl)
	return true, nil
}

// Release frees name.
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

