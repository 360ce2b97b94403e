package runlog

import (
	"context"
	"strconv"
	"sync"
)

// InMemStore is a slice-backed Store for tests and single-process demos.
type InMemStore struct {
	mu     sync.Mutex
	events map[string][]*Event
	seq    int
}

// NewInMemStore constructs an empty InMemStore.
func NewInMemStore() *InMemStore {
	return &InMemStore{events: make(map[string][]*Event)}
}

// Append implements Store.
func (s *InMemStore) Append(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.ID = strconv.Itoa(s.seq)
	s.events[e.TurnID] = append(s.events[e.TurnID], e)
	return nil
}

// List implements Store. The in-memory cursor is simply the numeric index of
// the next event to return, serialized as a decimal string.
func (s *InMemStore) List(_ context.Context, turnID string, cursor string, limit int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.events[turnID]
	start := 0
	if cursor != "" {
		if n, err := strconv.Atoi(cursor); err == nil {
			start = n
		}
	}
	if start >= len(all) {
		return Page{}, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	page := Page{Events: all[start:end]}
	if end < len(all) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}
