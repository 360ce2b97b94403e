// Package engine provides the round-level execution abstraction used by the
// turn driver to fan out ready sub-goals to the Worker Executor (spec §5):
// within a round, N ready sub-goals run concurrently; across rounds,
// execution is strictly sequential. This is intentionally the in-memory-only
// slice of a pluggable workflow-engine abstraction — durable/distributed
// execution backends are out of scope (spec §1 Non-goals).
package engine

import (
	"context"
	"sync"

	"github.com/beefkknd/deterministic-planner/internal/state"
)

// RunFunc executes one ready sub-goal and returns its WorkerResult. Engine
// implementations must call RunFunc with a context that is cancelled when
// the round's parent context is cancelled (spec §5 cancellation).
type RunFunc func(ctx context.Context, sg state.SubGoal) state.WorkerResult

// Engine runs a round's ready sub-goals. Implementations share no state
// between sibling invocations within a call (spec §4.6).
type Engine interface {
	// DispatchRound runs fn once per entry in ready, concurrently, and
	// returns their results as a slice aligned by index to ready. Dispatch
	// order among ready sub-goals is unspecified (spec §4.5); only the
	// index alignment of the returned slice is guaranteed.
	DispatchRound(ctx context.Context, ready []state.SubGoal, fn RunFunc) []state.WorkerResult
}

// InMem is a goroutine-per-sub-goal Engine suitable for single-process
// execution. It is not durable and does not survive process restarts.
type InMem struct{}

// New constructs an InMem engine.
func New() *InMem {
	return &InMem{}
}

// DispatchRound implements Engine.
func (e *InMem) DispatchRound(ctx context.Context, ready []state.SubGoal, fn RunFunc) []state.WorkerResult {
	results := make([]state.WorkerResult, len(ready))
	var wg sync.WaitGroup
	for i, sg := range ready {
		wg.Add(1)
		go func(i int, sg state.SubGoal) {
			defer wg.Done()
			results[i] = fn(ctx, sg)
		}(i, sg)
	}
	wg.Wait()
	return results
}
