package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

var _ driven.RefreshLock = (*MockRefreshLock)(nil)

// MockRefreshLock records refresh lock traffic. Locks taken with
// HoldElsewhere stay held until their ttl passes.
type MockRefreshLock struct {
	mu       sync.Mutex
	held     map[string]time.Time
	acquired []string

	// AcquireErr makes every Acquire fail.
	AcquireErr error
}

// NewMockRefreshLock creates an empty lock table.
func NewMockRefreshLock() *MockRefreshLock {
	return &MockRefreshLock{held: make(map[string]time.Time)}
}

func (m *MockRefreshLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireErr != nil {
		return false, m.AcquireErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if until, ok := m.held[name]; ok && time.Now().Before(until) {
		return false, nil
	}
	m.held[name] = time.Now().Add(ttl)
	m.acquired = append(m.acquired, name)
	return true, nil
}

func (m *MockRefreshLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	return nil
}

// HoldElsewhere simulates another instance refreshing name.
func (m *MockRefreshLock) HoldElsewhere(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = time.Now().Add(ttl)
}

// IsHeld reports whether name is currently locked.
func (m *MockRefreshLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.held[name]
	return ok && time.Now().Before(until)
}

// Acquired lists the names this mock handed out, in order.
func (m *MockRefreshLock) Acquired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acquired...)
}
