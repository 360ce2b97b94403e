package driver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beefkknd/deterministic-planner/internal/engine"
	"github.com/beefkknd/deterministic-planner/internal/executor"
	"github.com/beefkknd/deterministic-planner/internal/joinreduce"
	"github.com/beefkknd/deterministic-planner/internal/llmclient"
	"github.com/beefkknd/deterministic-planner/internal/normalizer"
	"github.com/beefkknd/deterministic-planner/internal/planner"
	"github.com/beefkknd/deterministic-planner/internal/registry"
	"github.com/beefkknd/deterministic-planner/internal/runlog"
	"github.com/beefkknd/deterministic-planner/internal/state"
	"github.com/beefkknd/deterministic-planner/internal/synthesizer"
	"github.com/beefkknd/deterministic-planner/internal/telemetry"
)

type testRig struct {
	driver *Driver
	client *llmclient.FakeClient
	reg    *registry.Registry
	bodies *executor.Bodies
	runlog runlog.Store
}

func newRig() testRig {
	client := llmclient.NewFakeClient()
	reg := registry.New()
	reg.MustRegister(registry.Capability{Name: "es_query_gen", Outputs: []string{"es_query"}, GoalType: string(state.Support), MemorableSlots: []string{"es_query"}})
	reg.MustRegister(registry.Capability{Name: "es_query_exec", Outputs: []string{"formatted_results", "next_offset", "page_size"}, GoalType: string(state.Deliverable), MemorableSlots: []string{"next_offset", "page_size"}, SynthesisMode: registry.Display})
	reg.MustRegister(registry.Capability{Name: "common_helpdesk", Outputs: []string{"answer"}, GoalType: string(state.Deliverable), SynthesisMode: registry.Display})

	bodies := executor.NewBodies()
	bodies.Register("es_query_gen", func(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
		return map[string]any{"es_query": `{"match":"delayed"}`}, nil
	})
	bodies.Register("es_query_exec", func(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
		return map[string]any{"formatted_results": "3 shipments delayed", "next_offset": 10, "page_size": 10}, nil
	})
	bodies.Register("common_helpdesk", func(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
		return map[string]any{"answer": "Our support hours are 9-5."}, nil
	})

	norm := normalizer.New(client, telemetry.NewNoopLogger())
	plan := planner.New(client, reg, telemetry.NewNoopLogger())
	exec := executor.New(bodies, telemetry.NewNoopLogger())
	join := joinreduce.New(reg)
	synth := synthesizer.New(client, reg)
	eng := engine.New()
	runlogStore := runlog.NewInMemStore()

	d := New(norm, plan, exec, join, synth, eng, runlogStore,
		telemetry.NewNoopLogger(), telemetry.NewNoopMetrics(), telemetry.NewNoopTracer())

	return testRig{driver: d, client: client, reg: reg, bodies: bodies, runlog: runlogStore}
}

// TestRunTurn_ImmediateFailureNeverDispatches covers the planner declaring
// failed on round 1 with no sub-goals ever created.
func TestRunTurn_ImmediateFailureNeverDispatches(t *testing.T) {
	rig := newRig()
	rig.client.QueueStructured(normalizer.TemplateName(), map[string]any{"question": "what is the meaning of life?"})
	rig.client.QueueStructured(planner.TemplateName(), map[string]any{
		"action":         "failed",
		"failure_reason": "no worker can answer this",
	})

	result, err := rig.driver.RunTurn(context.Background(), "sess-1", 1, "what is the meaning of life?", nil, 4)

	require.NoError(t, err)
	assert.Equal(t, state.PlanFailed, result.Status)
	assert.Empty(t, result.NewArtifacts)
}

// TestRunTurn_SingleRoundDoneSynthesizesImmediately covers the planner
// declaring done on round 1 with no sub-goals dispatched.
func TestRunTurn_SingleRoundDoneSynthesizesImmediately(t *testing.T) {
	rig := newRig()
	rig.client.QueueStructured(normalizer.TemplateName(), map[string]any{"question": "what are your hours?"})
	rig.client.QueueStructured(planner.TemplateName(), map[string]any{
		"action":    "done",
		"reasoning": "no data lookup needed",
	})

	result, err := rig.driver.RunTurn(context.Background(), "sess-1", 1, "what are your hours?", nil, 4)

	require.NoError(t, err)
	assert.Equal(t, state.Done, result.Status)
	assert.NotEmpty(t, result.FinalResponse)
}

// TestRunTurn_TwoRoundPlanDispatchesSynthesizes covers the full chain:
// normalize -> plan(continue) -> dispatch -> join/reduce -> plan(done) ->
// synthesize, with two sub-goals dispatched together in one round and their
// artifacts bundled.
func TestRunTurn_TwoRoundPlanDispatchesSynthesizes(t *testing.T) {
	rig := newRig()
	rig.client.QueueStructured(normalizer.TemplateName(), map[string]any{"question": "what shipments are delayed?"})
	rig.client.QueueStructured(planner.TemplateName(), map[string]any{
		"action": "continue",
		"sub_goals": []map[string]any{
			{"worker": "es_query_gen", "description": "generate query"},
			{
				"worker":      "es_query_exec",
				"description": "execute query",
				"goal_type":   "deliverable",
				"params":      map[string]any{"bundles_with_sub_goal": 1},
			},
		},
	})
	rig.client.QueueStructured(planner.TemplateName(), map[string]any{
		"action":    "done",
		"reasoning": "have the results",
		"synthesis_inputs": map[string]any{
			"results": map[string]any{"from_sub_goal": 2, "slot": "formatted_results"},
		},
	})

	result, err := rig.driver.RunTurn(context.Background(), "sess-1", 1, "what shipments are delayed?", nil, 4)

	require.NoError(t, err)
	assert.Equal(t, state.Done, result.Status)
	assert.Equal(t, "3 shipments delayed", result.FinalResponse)
	require.Len(t, result.NewArtifacts, 1, "es_query_gen artifact should bundle the pagination slots from es_query_exec")
	assert.Equal(t, `{"match":"delayed"}`, result.NewArtifacts[0].Slots["es_query"])
	assert.Equal(t, 10, result.NewArtifacts[0].Slots["next_offset"])

	page, err := rig.runlog.List(context.Background(), "1", "", 100)
	require.NoError(t, err)
	var traceIDs []string
	for _, ev := range page.Events {
		if ev.Type != runlog.EventSubGoalCompleted {
			continue
		}
		var payload map[string]any
		require.NoError(t, json.Unmarshal(ev.Payload, &payload))
		traceID, _ := payload["dispatch_trace_id"].(string)
		require.NotEmpty(t, traceID, "sub_goal_completed events must carry a dispatch trace id")
		traceIDs = append(traceIDs, traceID)
	}
	require.Len(t, traceIDs, 2)
	assert.Equal(t, traceIDs[0], traceIDs[1], "both sub-goals dispatched in the same round must share one trace id")
}

// TestRunTurn_RoundBudgetExhaustionFailsTurn covers the planner hitting the
// round budget after a round whose only sub-goal can never complete: its
// input references nonexistent sub-goal 999, so it is created failed and
// never dispatched, and the join advances the round past the budget.
func TestRunTurn_RoundBudgetExhaustionFailsTurn(t *testing.T) {
	rig := newRig()
	rig.client.QueueStructured(normalizer.TemplateName(), map[string]any{"question": "find a contradiction"})
	// One continue reply is enough: round budget is 1, so the planner fails on
	// budget in round 2 before asking the LLM again.
	rig.client.QueueStructured(planner.TemplateName(), map[string]any{
		"action": "continue",
		"sub_goals": []map[string]any{
			{
				"worker":      "es_query_exec",
				"description": "needs input that never arrives",
				"inputs": map[string]any{
					"query": map[string]any{"from_sub_goal": 999, "slot": "es_query"},
				},
			},
		},
	})

	result, err := rig.driver.RunTurn(context.Background(), "sess-1", 1, "find a contradiction", nil, 1)

	require.NoError(t, err)
	assert.Equal(t, state.PlanFailed, result.Status)
}

func TestRunTurn_DefaultsMaxRoundsWhenNonPositive(t *testing.T) {
	rig := newRig()
	rig.client.QueueStructured(normalizer.TemplateName(), map[string]any{"question": "what are your hours?"})
	rig.client.QueueStructured(planner.TemplateName(), map[string]any{
		"action": "done",
	})

	result, err := rig.driver.RunTurn(context.Background(), "sess-1", 1, "what are your hours?", nil, 0)

	require.NoError(t, err)
	assert.Equal(t, state.Done, result.Status)
}
