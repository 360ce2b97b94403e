// Package runlog provides an append-only event log for turn introspection.
// It is a collaborator, not part of the in-turn state machine: the core
// components never read it back mid-turn, they only append to it for
// observability (which round ran, which sub-goals dispatched, what the
// Synthesizer assembled).
package runlog

import (
	"context"
	"encoding/json"
	"time"
)

// EventType categorizes a logged event.
type EventType string

const (
	EventRoundStarted     EventType = "round_started"
	EventSubGoalDispatched EventType = "sub_goal_dispatched"
	EventSubGoalCompleted  EventType = "sub_goal_completed"
	EventJoinReduced       EventType = "join_reduced"
	EventTurnSynthesized   EventType = "turn_synthesized"
	EventTurnFailed        EventType = "turn_failed"
)

// Event is a single immutable turn event appended to the run log. Store
// implementations assign ID when persisting.
type Event struct {
	ID        string
	TurnID    string
	SessionID string
	Type      EventType
	Payload   json.RawMessage
	Timestamp time.Time
}

// Page is a forward page of turn events.
type Page struct {
	Events     []*Event
	NextCursor string
}

// Store is an append-only event store for turn introspection. Implementations
// must provide stable ordering within a turn; cursor values are store-owned
// and opaque to callers.
type Store interface {
	// Append stores the event in the run log.
	Append(ctx context.Context, e *Event) error

	// List returns the next forward page of events for the given turn ID.
	// Cursor is an opaque value from a previous List call, or empty to start
	// from the beginning. Limit must be greater than zero.
	List(ctx context.Context, turnID string, cursor string, limit int) (Page, error)
}
