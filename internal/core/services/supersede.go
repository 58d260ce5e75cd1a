package services

import (
	"context"
	"sync"
)

// Request kinds that supersede each other per user.
const (
	KindChat   = "chat"
	KindSpeech = "speech"
)

// Superseder cancels a user's in-flight request when a newer request of
// the same kind starts. State is per-instance.
type Superseder struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]inflightRequest
}

type inflightRequest struct {
	seq    uint64
	cancel context.CancelFunc
}

// NewSuperseder creates an empty superseder.
func NewSuperseder() *Superseder {
	return &Superseder{inflight: make(map[string]inflightRequest)}
}

// Begin derives a cancellable context for a request and cancels the
// previous request of the same kind and user. The returned func must be
// called when the request finishes. Anonymous requests never supersede.
func (s *Superseder) Begin(ctx context.Context, kind, userID string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	if userID == "" {
		return ctx, cancel
	}

	key := kind + ":" + userID
	s.mu.Lock()
	s.seq++
	seq := s.seq
	if prev, ok := s.inflight[key]; ok {
		prev.cancel()
	}
	s.inflight[key] = inflightRequest{seq: seq, cancel: cancel}
	s.mu.Unlock()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			cancel()
			s.mu.Lock()
			if cur, ok := s.inflight[key]; ok && cur.seq == seq {
				delete(s.inflight, key)
			}
			s.mu.Unlock()
		})
	}
}

// InFlight returns the number of tracked requests.
func (s *Superseder) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}
