package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RefreshLock = (*Lock)(nil)

const lockPrefix = keyPrefix + "lock:"

// Lock implements RefreshLock with SET NX and a TTL. The value is an
// owner ID unique to this instance, so an instance only releases its own
// locks.
type Lock struct {
	client  redis.UniversalClient
	ownerID string
}

// NewLock creates a new Redis-backed distributed lock.
func NewLock(client redis.UniversalClient) *Lock {
	return &Lock{
		client:  client,
		ownerID: generateOwnerID(),
	}
}

// generateOwnerID returns hostname:pid:random.
func generateOwnerID() string {
	hostname, _ := os.Hostname()
	randomBytes := make([]byte, 8)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(randomBytes))
}

// Acquire takes the lock unless any owner holds it. It never blocks.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockPrefix+name, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// compareAndDelete deletes KEYS[1] only while it holds ARGV[1].
var compareAndDelete = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Release drops the lock if this instance holds it.
func (l *Lock) Release(ctx context.Context, name string) error {
	err := compareAndDelete.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// OwnerID identifies this instance in lock values.
func (l *Lock) OwnerID() string {
	return l.ownerID
}
