package memory

import (
	"context"
	"sync"

	"github.com/beefkknd/deterministic-planner/internal/state"
)

// InMemStore is a map-backed Store used in tests and for single-process
// demos. Not durable across restarts (durability is an explicit Non-goal of
// the core, spec §1; this sits entirely in the driver/collaborator layer).
type InMemStore struct {
	mu       sync.Mutex
	sessions map[string][]state.TurnSummary
}

// NewInMemStore constructs an empty InMemStore.
func NewInMemStore() *InMemStore {
	return &InMemStore{sessions: make(map[string][]state.TurnSummary)}
}

// History implements Store.
func (s *InMemStore) History(_ context.Context, sessionID string) ([]state.TurnSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.sessions[sessionID]
	out := make([]state.TurnSummary, len(history))
	copy(out, history)
	return out, nil
}

// Append implements Store.
func (s *InMemStore) Append(_ context.Context, sessionID string, turn state.TurnSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return nil
}
