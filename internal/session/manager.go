// Package session holds the ephemeral per-participant dialogue state.
package session

import (
	"log/slog"
	"sync"

	"github.com/affectlab/xai-dialogue/internal/domain"
)

// Session is the in-memory conversational state of one participant's
// current dialogue phase. All fields are guarded by mu; callers must hold
// the lock through any mutation that has to be atomic as a unit (history
// append, turn increment, summary replacement).
type Session struct {
	mu sync.Mutex

	history    []domain.Message
	summary    string
	turnCount  int
	trajectory []float64
}

// Lock acquires the per-participant mutex.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-participant mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// AppendMessage adds one entry to the history. Caller must hold the lock.
func (s *Session) AppendMessage(role, content string) {
	s.history = append(s.history, domain.Message{Role: role, Content: content})
}

// History returns the history slice. Caller must hold the lock and must not
// retain the slice past unlock.
func (s *Session) History() []domain.Message {
	return s.history
}

// Recent returns up to n of the latest history entries. Caller must hold
// the lock.
func (s *Session) Recent(n int) []domain.Message {
	if len(s.history) <= n {
		return s.history
	}
	return s.history[len(s.history)-n:]
}

// Summary returns the rolling summary. Caller must hold the lock.
func (s *Session) Summary() string { return s.summary }

// SetSummary replaces the rolling summary. Caller must hold the lock.
func (s *Session) SetSummary(summary string) { s.summary = summary }

// TurnCount returns the number of completed turns. Caller must hold the lock.
func (s *Session) TurnCount() int { return s.turnCount }

// CompleteTurn increments the turn counter and records the turn's signed
// sentiment score. Only the dialogue finalization path calls this; caller
// must hold the lock.
func (s *Session) CompleteTurn(score float64) int {
	s.turnCount++
	s.trajectory = append(s.trajectory, score)
	return s.turnCount
}

// Trajectory returns a copy of the per-turn score sequence. Caller must
// hold the lock.
func (s *Session) Trajectory() []float64 {
	out := make([]float64, len(s.trajectory))
	copy(out, s.trajectory)
	return out
}

// Snapshot returns turn count and trajectory copy in one locked read.
func (s *Session) Snapshot() (int, []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount, s.Trajectory()
}

// Manager owns the session map. Sessions are created lazily on first access
// and destroyed at experiment start and washout completion so no history,
// summary or trajectory leaks across conditions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the participant's session, creating it on first access.
func (m *Manager) Get(participantID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[participantID]
	if !ok {
		s = &Session{}
		m.sessions[participantID] = s
	}
	return s
}

// Clear removes the participant's session. Removing a missing session is a
// no-op.
func (m *Manager) Clear(participantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[participantID]; ok {
		delete(m.sessions, participantID)
		slog.Info("Dialogue session cleared", "participant_id", participantID)
	}
}
