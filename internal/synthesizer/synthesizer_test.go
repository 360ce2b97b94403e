package synthesizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beefkknd/deterministic-planner/internal/llmclient"
	"github.com/beefkknd/deterministic-planner/internal/registry"
	"github.com/beefkknd/deterministic-planner/internal/state"
)

func newReg() *registry.Registry {
	r := registry.New()
	r.MustRegister(registry.Capability{Name: "analyze_results", GoalType: string(state.Deliverable), SynthesisMode: registry.Narrative})
	r.MustRegister(registry.Capability{Name: "show_results", GoalType: string(state.Deliverable), SynthesisMode: registry.Display})
	r.MustRegister(registry.Capability{Name: "es_query_gen", GoalType: string(state.Support), SynthesisMode: registry.Hidden})
	return r
}

func TestSynthesize_UsesSynthesisInputsWhenPresent(t *testing.T) {
	client := llmclient.NewFakeClient()
	s := New(client, newReg())

	st := state.PlanState{
		Question: "what's delayed?",
		SubGoals: []state.SubGoal{
			{ID: 1, Worker: "show_results", GoalType: state.Deliverable, Status: state.Success},
		},
		CompletedOutputs: map[int]map[string]any{
			1: {"formatted_results": "3 shipments delayed"},
		},
		SynthesisInputs: map[string]state.InputRef{
			"answer": {FromSubGoal: 1, Slot: "formatted_results"},
		},
	}

	next, err := s.Synthesize(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, state.Done, next.Status)
	assert.Equal(t, "3 shipments delayed", next.FinalResponse)
}

func TestSynthesize_FallsBackToPassthroughWhenNoSynthesisInputs(t *testing.T) {
	client := llmclient.NewFakeClient()
	s := New(client, newReg())

	st := state.PlanState{
		Question: "what's delayed?",
		SubGoals: []state.SubGoal{
			{ID: 1, Worker: "show_results", GoalType: state.Deliverable, Status: state.Success},
			{ID: 2, Worker: "es_query_gen", GoalType: state.Support, Status: state.Success},
		},
		CompletedOutputs: map[int]map[string]any{
			1: {"formatted_results": "3 shipments delayed"},
			2: {"es_query": "{}"},
		},
	}

	next, err := s.Synthesize(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, "3 shipments delayed", next.FinalResponse, "support sub-goal must not leak into the passthrough fallback")
}

func TestSynthesize_NarrativeModeInvokesCollaborator(t *testing.T) {
	client := llmclient.NewFakeClient()
	client.QueueCompletion(narrativeTemplate, "Three shipments are currently delayed.")
	s := New(client, newReg())

	st := state.PlanState{
		Question: "what's delayed?",
		SubGoals: []state.SubGoal{
			{ID: 1, Worker: "analyze_results", GoalType: state.Deliverable, Status: state.Success},
		},
		CompletedOutputs: map[int]map[string]any{
			1: {"analysis": "3 delayed shipments found in the west region"},
		},
		SynthesisInputs: map[string]state.InputRef{
			"analysis": {FromSubGoal: 1, Slot: "analysis"},
		},
	}

	next, err := s.Synthesize(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, "Three shipments are currently delayed.", next.FinalResponse)
}

func TestSynthesize_NarrativeCollaboratorFailureFallsBackToRawConcatenation(t *testing.T) {
	client := llmclient.NewFakeClient() // nothing queued -> Complete errors
	s := New(client, newReg())

	st := state.PlanState{
		Question: "what's delayed?",
		SubGoals: []state.SubGoal{
			{ID: 1, Worker: "analyze_results", GoalType: state.Deliverable, Status: state.Success},
		},
		CompletedOutputs: map[int]map[string]any{
			1: {"analysis": "raw analysis text"},
		},
		SynthesisInputs: map[string]state.InputRef{
			"analysis": {FromSubGoal: 1, Slot: "analysis"},
		},
	}

	next, err := s.Synthesize(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, "raw analysis text", next.FinalResponse)
}

func TestSynthesize_DisplayAndNarrativeBothPresentAreJoined(t *testing.T) {
	client := llmclient.NewFakeClient()
	client.QueueCompletion(narrativeTemplate, "Summary text.")
	s := New(client, newReg())

	st := state.PlanState{
		Question: "what's delayed?",
		SubGoals: []state.SubGoal{
			{ID: 1, Worker: "analyze_results", GoalType: state.Deliverable, Status: state.Success},
			{ID: 2, Worker: "show_results", GoalType: state.Deliverable, Status: state.Success},
		},
		CompletedOutputs: map[int]map[string]any{
			1: {"analysis": "raw analysis"},
			2: {"formatted_results": "table of hits"},
		},
		SynthesisInputs: map[string]state.InputRef{
			"analysis": {FromSubGoal: 1, Slot: "analysis"},
			"results":  {FromSubGoal: 2, Slot: "formatted_results"},
		},
	}

	next, err := s.Synthesize(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, "Summary text.\n\ntable of hits", next.FinalResponse)
}

func TestSynthesize_NoSelectedSlotsYieldsFallbackMessage(t *testing.T) {
	client := llmclient.NewFakeClient()
	s := New(client, newReg())

	st := state.PlanState{Question: "what's delayed?"}

	next, err := s.Synthesize(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, fallbackMessage, next.FinalResponse)
}

func TestSynthesize_HiddenModeSlotsAreExcludedEvenWhenSelected(t *testing.T) {
	client := llmclient.NewFakeClient()
	s := New(client, newReg())

	st := state.PlanState{
		Question: "what's delayed?",
		SubGoals: []state.SubGoal{
			{ID: 1, Worker: "es_query_gen", GoalType: state.Support, Status: state.Success},
		},
		CompletedOutputs: map[int]map[string]any{
			1: {"es_query": "{}"},
		},
		SynthesisInputs: map[string]state.InputRef{
			"query": {FromSubGoal: 1, Slot: "es_query"},
		},
	}

	next, err := s.Synthesize(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, fallbackMessage, next.FinalResponse)
}
