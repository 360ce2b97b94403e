// Package session defines durable session lifecycle primitives for the
// driver layer (spec §6). A Session is the conversational container that
// groups the turns recorded in internal/memory; its lifecycle is explicit
// and independent of any single turn's execution.
package session

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Session captures durable session lifecycle state.
//
// Contract:
//   - Session IDs are stable and caller-provided.
//   - Sessions are created explicitly (CreateSession) and ended explicitly
//     (EndSession). Ended sessions are terminal: new turns must not start
//     under an ended session.
type Session struct {
	ID        string
	Status    Status
	CreatedAt time.Time
	EndedAt   *time.Time
}

// Store persists session lifecycle state.
type Store interface {
	// CreateSession creates (or returns) an active session. Idempotent for
	// active sessions. Returns ErrSessionEnded when the session exists but
	// is terminal.
	CreateSession(ctx context.Context, sessionID string, createdAt time.Time) (Session, error)

	// LoadSession loads an existing session. Returns ErrSessionNotFound when
	// the session does not exist.
	LoadSession(ctx context.Context, sessionID string) (Session, error)

	// EndSession ends a session and returns its terminal state. Idempotent.
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) (Session, error)
}

var (
	// ErrSessionNotFound indicates a session does not exist in the store.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionEnded indicates a session exists but is terminal.
	ErrSessionEnded = errors.New("session: ended")
)
