package services

import (
	"context"
	"testing"
)

func TestSuperseder_NewRequestCancelsPrevious(t *testing.T) {
	s := NewSuperseder()

	first, doneFirst := s.Begin(context.Background(), KindChat, "user-1")
	second, doneSecond := s.Begin(context.Background(), KindChat, "user-1")
	defer doneSecond()

	if first.Err() == nil {
		t.Error("expected first request to be cancelled")
	}
	if second.Err() != nil {
		t.Error("expected second request to be live")
	}

	// Finishing the superseded request must not untrack the newer one.
	doneFirst()
	if s.InFlight() != 1 {
		t.Errorf("expected 1 in-flight request, got %d", s.InFlight())
	}
}

func TestSuperseder_KindsAndUsersAreIndependent(t *testing.T) {
	s := NewSuperseder()

	chat, done1 := s.Begin(context.Background(), KindChat, "user-1")
	defer done1()
	speech, done2 := s.Begin(context.Background(), KindSpeech, "user-1")
	defer done2()
	other, done3 := s.Begin(context.Background(), KindChat, "user-2")
	defer done3()

	for name, ctx := range map[string]context.Context{"chat": chat, "speech": speech, "other": other} {
		if ctx.Err() != nil {
			t.Errorf("expected %s request to be live", name)
		}
	}
}

func TestSuperseder_AnonymousNeverSupersedes(t *testing.T) {
	s := NewSuperseder()

	a, doneA := s.Begin(context.Background(), KindChat, "")
	defer doneA()
	_, doneB := s.Begin(context.Background(), KindChat, "")
	defer doneB()

	if a.Err() != nil {
		t.Error("anonymous requests must not cancel each other")
	}
	if s.InFlight() != 0 {
		t.Errorf("expected anonymous requests untracked, got %d", s.InFlight())
	}
}

func TestSuperseder_DoneCancelsAndUntracks(t *testing.T) {
	s := NewSuperseder()

	ctx, done := s.Begin(context.Background(), KindSpeech, "user-1")
	done()
	done()

	if ctx.Err() == nil {
		t.Error("expected context cancelled after done")
	}
	if s.InFlight() != 0 {
		t.Errorf("expected no in-flight requests, got %d", s.InFlight())
	}
}
