package driven

import (
	"context"
	"time"
)

// RefreshLock serializes OAuth refreshes of one (user, connector) row
// across instances, so a refresh token is exchanged once.
type RefreshLock interface {
	// Acquire takes the named lock for at most ttl. It never blocks and
	// returns false while another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release drops the lock. Releasing a lock that is free, expired or
	// held by someone else is a no-op.
	Release(ctx context.Context, name string) error
}
