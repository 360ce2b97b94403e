// Package redisstore implements memory.Store on top of github.com/redis/go-redis/v9,
// giving the conversational memory protocol (spec §3, §4.3) a backing store
// that survives process restarts of the driver (the core itself remains
// stateless between turns; only the collaborator store is durable).
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/beefkknd/deterministic-planner/internal/state"
)

// Store persists per-session turn history as a Redis list of JSON-encoded
// TurnSummary records, one list per session key.
type Store struct {
	client *redis.Client
	prefix string
}

// New constructs a Store backed by client. prefix namespaces the Redis keys
// (e.g. "planner:session:") so multiple applications can share a Redis
// instance safely.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "planner:session:"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

// History implements memory.Store.
func (s *Store) History(ctx context.Context, sessionID string) ([]state.TurnSummary, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redisstore: load history for %s: %w", sessionID, err)
	}
	history := make([]state.TurnSummary, 0, len(raw))
	for _, item := range raw {
		var turn state.TurnSummary
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("redisstore: decode turn for %s: %w", sessionID, err)
		}
		history = append(history, turn)
	}
	return history, nil
}

// Append implements memory.Store.
func (s *Store) Append(ctx context.Context, sessionID string, turn state.TurnSummary) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("redisstore: encode turn for %s: %w", sessionID, err)
	}
	if err := s.client.RPush(ctx, s.key(sessionID), payload).Err(); err != nil {
		return fmt.Errorf("redisstore: append turn for %s: %w", sessionID, err)
	}
	return nil
}
