package session

import (
	"sync"
	"time"

	"context"
)

// InMemStore is a map-backed Store for tests and single-process demos.
type InMemStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewInMemStore constructs an empty InMemStore.
func NewInMemStore() *InMemStore {
	return &InMemStore{sessions: make(map[string]Session)}
}

// CreateSession implements Store.
func (s *InMemStore) CreateSession(_ context.Context, sessionID string, createdAt time.Time) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[sessionID]; ok {
		if existing.Status == StatusEnded {
			return Session{}, ErrSessionEnded
		}
		return existing, nil
	}
	sess := Session{ID: sessionID, Status: StatusActive, CreatedAt: createdAt}
	s.sessions[sessionID] = sess
	return sess, nil
}

// LoadSession implements Store.
func (s *InMemStore) LoadSession(_ context.Context, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// EndSession implements Store.
func (s *InMemStore) EndSession(_ context.Context, sessionID string, endedAt time.Time) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Status == StatusEnded {
		return sess, nil
	}
	sess.Status = StatusEnded
	t := endedAt
	sess.EndedAt = &t
	s.sessions[sessionID] = sess
	return sess, nil
}
