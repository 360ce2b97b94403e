// Package memory persists the conversational memory protocol (spec §3, §4.3,
// §6): the ordered TurnSummary history a session accumulates across turns,
// including the KeyArtifacts that let a later turn continue pagination or
// re-reference an earlier query by stable slot name.
//
// This is a collaborator store, not part of the core's in-turn state
// machine: the core only ever sees the slice of TurnSummary handed to it as
// PlanState.ConversationHistory (spec §3) and returns a new TurnSummary plus
// KeyArtifacts for the driver to append (spec §6 driver boundary).
package memory

import (
	"context"
	"errors"

	"github.com/beefkknd/deterministic-planner/internal/state"
)

// ErrSessionNotFound indicates no history has been recorded yet for a
// session; callers should treat this as an empty history, not a failure.
var ErrSessionNotFound = errors.New("memory: session not found")

// Store persists TurnSummary history per session. Implementations must be
// safe for concurrent use across turns in different sessions.
type Store interface {
	// History returns the ordered turn history for sessionID, most recent
	// last. Returns an empty slice (not ErrSessionNotFound) if the session
	// has no history yet.
	History(ctx context.Context, sessionID string) ([]state.TurnSummary, error)

	// Append records a completed turn's summary for sessionID.
	Append(ctx context.Context, sessionID string, turn state.TurnSummary) error
}

// RecentWindow returns up to the last n turns of history, oldest first —
// used by the Normalizer, which formats only the last 5 turns into its
// prompt context and elides earlier ones (spec §4.3).
func RecentWindow(history []state.TurnSummary, n int) []state.TurnSummary {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// LatestArtifact scans history most-recent-first and returns the first
// KeyArtifact of the given type, which the wire contract (spec §6) treats as
// authoritative for the Normalizer's next-turn lookups.
func LatestArtifact(history []state.TurnSummary, artifactType state.ArtifactType) (state.KeyArtifact, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		for j := len(turn.KeyArtifacts) - 1; j >= 0; j-- {
			if turn.KeyArtifacts[j].Type == artifactType {
				return turn.KeyArtifacts[j], true
			}
		}
	}
	return state.KeyArtifact{}, false
}
