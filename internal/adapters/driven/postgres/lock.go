package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RefreshLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements RefreshLock with session-level PostgreSQL
// advisory locks. It serves deployments that run several instances
// against one database without Redis.
//
// Advisory locks belong to a connection, so each held lock pins one pooled
// connection until Release. The TTL is not enforced by the server; a
// crashed instance releases its locks when its connections close.
type AdvisoryLock struct {
	db *DB

	mu   sync.Mutex
	held map[string]*sql.Conn
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db, held: make(map[string]*sql.Conn)}
}

// hashLockName maps a lock name onto the bigint key space of advisory locks.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("sercha-dispatch:lock:" + name))
	return int64(h.Sum64())
}

// Acquire tries the lock without blocking.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[name]; ok {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.held[name] = conn
	return true, nil
}

// Release unlocks on the connection that took the lock and returns it to
// the pool. Releasing a lock this instance does not hold is a no-op.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn, ok := l.held[name]
	delete(l.held, name)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	defer conn.Close()

	var released bool
	return conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released)
}
