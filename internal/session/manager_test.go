package session

import (
	"testing"

	"github.com/affectlab/xai-dialogue/internal/domain"
)

func TestGetCreatesLazily(t *testing.T) {
	m := NewManager()
	s1 := m.Get("P1")
	s2 := m.Get("P1")
	if s1 != s2 {
		t.Error("Get returned different sessions for the same participant")
	}
	if s1 == m.Get("P2") {
		t.Error("participants share a session")
	}
}

func TestClearDropsState(t *testing.T) {
	m := NewManager()
	s := m.Get("P1")
	s.Lock()
	s.AppendMessage(domain.RoleUser, "hello")
	s.CompleteTurn(0.5)
	s.Unlock()

	m.Clear("P1")
	m.Clear("P1") // clearing a missing session is a no-op

	fresh := m.Get("P1")
	turns, trajectory := fresh.Snapshot()
	if turns != 0 || len(trajectory) != 0 {
		t.Errorf("cleared session kept state: turns=%d trajectory=%v", turns, trajectory)
	}
}

func TestCompleteTurnTracksTrajectory(t *testing.T) {
	s := &Session{}
	s.Lock()
	if got := s.CompleteTurn(0.8); got != 1 {
		t.Errorf("first CompleteTurn = %d, want 1", got)
	}
	if got := s.CompleteTurn(-0.3); got != 2 {
		t.Errorf("second CompleteTurn = %d, want 2", got)
	}
	s.Unlock()

	turns, trajectory := s.Snapshot()
	if turns != 2 {
		t.Errorf("turns = %d, want 2", turns)
	}
	if len(trajectory) != 2 || trajectory[0] != 0.8 || trajectory[1] != -0.3 {
		t.Errorf("trajectory = %v", trajectory)
	}

	// The snapshot is a copy.
	trajectory[0] = 99
	_, again := s.Snapshot()
	if again[0] != 0.8 {
		t.Error("Snapshot returned a shared slice")
	}
}

func TestRecentWindow(t *testing.T) {
	s := &Session{}
	s.Lock()
	defer s.Unlock()

	for i := 0; i < 5; i++ {
		s.AppendMessage(domain.RoleUser, "msg")
	}
	if got := len(s.Recent(3)); got != 3 {
		t.Errorf("Recent(3) returned %d entries", got)
	}
	if got := len(s.Recent(10)); got != 5 {
		t.Errorf("Recent(10) returned %d entries", got)
	}
}

func TestSummaryRoundTrip(t *testing.T) {
	s := &Session{}
	s.Lock()
	defer s.Unlock()

	if s.Summary() != "" {
		t.Error("new session has a summary")
	}
	s.SetSummary("user discussed their week")
	if s.Summary() != "user discussed their week" {
		t.Errorf("Summary = %q", s.Summary())
	}
}
