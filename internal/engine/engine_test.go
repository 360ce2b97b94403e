package engine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/beefkknd/deterministic-planner/internal/state"
)

func TestDispatchRound_EmptyReadyReturnsEmptySlice(t *testing.T) {
	e := New()
	results := e.DispatchRound(context.Background(), nil, func(ctx context.Context, sg state.SubGoal) state.WorkerResult {
		t.Fatal("fn should never be called for an empty ready slice")
		return state.WorkerResult{}
	})
	assert.Empty(t, results)
}

func TestDispatchRound_ResultsAlignByIndexToReady(t *testing.T) {
	e := New()
	ready := []state.SubGoal{
		{ID: 10},
		{ID: 20},
		{ID: 30},
	}

	results := e.DispatchRound(context.Background(), ready, func(ctx context.Context, sg state.SubGoal) state.WorkerResult {
		return state.WorkerResult{SubGoalID: sg.ID, Status: state.Success}
	})

	assert.Len(t, results, 3)
	assert.Equal(t, 10, results[0].SubGoalID)
	assert.Equal(t, 20, results[1].SubGoalID)
	assert.Equal(t, 30, results[2].SubGoalID)
}

func TestDispatchRound_RunsAllEntriesConcurrently(t *testing.T) {
	e := New()
	ready := make([]state.SubGoal, 50)
	for i := range ready {
		ready[i] = state.SubGoal{ID: i}
	}

	var calls int32
	e.DispatchRound(context.Background(), ready, func(ctx context.Context, sg state.SubGoal) state.WorkerResult {
		atomic.AddInt32(&calls, 1)
		return state.WorkerResult{SubGoalID: sg.ID, Status: state.Success}
	})

	assert.Equal(t, int32(50), atomic.LoadInt32(&calls))
}

func TestDispatchRound_PropagatesContextToEachCall(t *testing.T) {
	e := New()
	type key string
	ctx := context.WithValue(context.Background(), key("turn"), "abc")
	ready := []state.SubGoal{{ID: 1}}

	var seen string
	e.DispatchRound(ctx, ready, func(ctx context.Context, sg state.SubGoal) state.WorkerResult {
		seen, _ = ctx.Value(key("turn")).(string)
		return state.WorkerResult{SubGoalID: sg.ID}
	})

	assert.Equal(t, "abc", seen)
}
