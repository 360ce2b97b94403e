// Package joinreduce implements Join/Reduce (C7): merges one round's worker
// results into plan state, derives memorable KeyArtifacts, and advances the
// round counter (spec §4.7).
package joinreduce

import (
	"fmt"

	"github.com/beefkknd/deterministic-planner/internal/registry"
	"github.com/beefkknd/deterministic-planner/internal/state"
)

// JoinReduce is the C7 implementation, parameterized over the registry it
// consults for memorable_slots.
type JoinReduce struct {
	registry *registry.Registry
}

// New constructs a JoinReduce over reg.
func New(reg *registry.Registry) *JoinReduce {
	return &JoinReduce{registry: reg}
}

// Reduce merges st.WorkerResults into st, returning the next PlanState plus
// the turn's KeyArtifacts updated with anything this round's successful
// results added or merged (spec §4.7, §4.7.1). artifacts is the cumulative
// list already built from earlier rounds of this same turn (nil on the
// first round) — threading it back in lets a query-execution result that
// succeeds in a later round bundle into the query-generation artifact a
// prior round already produced, instead of duplicating it (spec §4.7.1
// "in this round or a prior one"). The caller is responsible for appending
// the returned list to conversation memory.
func (j *JoinReduce) Reduce(turnID int, st state.PlanState, artifacts []state.KeyArtifact) (state.PlanState, []state.KeyArtifact) {
	byID := make(map[int]state.WorkerResult, len(st.WorkerResults))
	for _, r := range st.WorkerResults {
		byID[r.SubGoalID] = r
	}

	completedOutputs := state.CloneCompletedOutputs(st.CompletedOutputs)
	subGoals := make([]state.SubGoal, len(st.SubGoals))
	copy(subGoals, st.SubGoals)

	var succeeded []state.SubGoal
	for i, sg := range subGoals {
		result, ok := byID[sg.ID]
		if !ok {
			continue
		}
		sg.Status = result.Status
		sg.Result = result.Outputs
		sg.Error = result.Error
		subGoals[i] = sg
		if result.Status == state.Success {
			completedOutputs[sg.ID] = result.Outputs
			succeeded = append(succeeded, sg)
		}
	}

	artifacts = j.buildArtifacts(turnID, subGoals, completedOutputs, succeeded, artifacts)

	st.SubGoals = subGoals
	st.CompletedOutputs = completedOutputs
	st.Round++
	st.Status = state.Planning
	st.WorkerResults = state.MergeWorkerResults(st.WorkerResults, nil)
	st.PlannerReasoning = fmt.Sprintf("join/reduce: round %d merged %d result(s), %d succeeded", st.Round-1, len(byID), len(succeeded))

	return st, artifacts
}

// buildArtifacts implements spec §4.7.1: for each successful result whose
// worker declares non-empty memorable_slots, build or merge a KeyArtifact
// depending on the worker's role (query-generation, query-execution,
// pagination, metadata-lookup). artifacts accumulates across the whole
// turn, not just this round, so findArtifact below can locate and merge
// into an artifact a prior round already produced.
func (j *JoinReduce) buildArtifacts(turnID int, subGoals []state.SubGoal, completedOutputs map[int]map[string]any, succeeded []state.SubGoal, artifacts []state.KeyArtifact) []state.KeyArtifact {
	// byGoalID lets bundling find the query-generation sub-goal referenced
	// by a query-execution worker's bundles_with_sub_goal param, whether
	// from this round or an earlier one.
	byGoalID := make(map[int]state.SubGoal, len(subGoals))
	for _, sg := range subGoals {
		byGoalID[sg.ID] = sg
	}

	for _, sg := range succeeded {
		capability, ok := j.registry.Lookup(sg.Worker)
		if !ok || len(capability.MemorableSlots) == 0 {
			continue
		}
		slots := sg.Result

		switch {
		case hasSlot(slots, "es_query") && hasSlot(slots, "next_offset"):
			// Pagination worker: fresh artifact preserving both query and cursor.
			artifacts = append(artifacts, state.KeyArtifact{
				Type:      state.ArtifactEsQuery,
				SubGoalID: sg.ID,
				TurnID:    turnID,
				Intent:    sg.Description,
				Slots:     pick(slots, "es_query", "next_offset", "page_size"),
			})

		case hasSlot(slots, "es_query"):
			// Query-generation worker.
			artifacts = append(artifacts, state.KeyArtifact{
				Type:      state.ArtifactEsQuery,
				SubGoalID: sg.ID,
				TurnID:    turnID,
				Intent:    sg.Description,
				Slots:     pick(slots, "es_query"),
			})

		case hasSlot(slots, "next_offset") || hasSlot(slots, "page_size"):
			// Query-execution worker: merge into its paired query-generation
			// artifact when bundles_with_sub_goal names one; else standalone.
			if g, ok := bundleTarget(sg.Params, byGoalID); ok {
				if idx := findArtifact(artifacts, g); idx >= 0 {
					for k, v := range pick(slots, "next_offset", "page_size") {
						artifacts[idx].Slots[k] = v
					}
					continue
				}
				merged := pick(slots, "next_offset", "page_size")
				if q, ok := completedOutputs[g]["es_query"]; ok {
					merged["es_query"] = q
				}
				artifacts = append(artifacts, state.KeyArtifact{
					Type:      state.ArtifactEsQuery,
					SubGoalID: g,
					TurnID:    turnID,
					Intent:    sg.Description,
					Slots:     merged,
				})
				continue
			}
			artifacts = append(artifacts, state.KeyArtifact{
				Type:      state.ArtifactEsQuery,
				SubGoalID: sg.ID,
				TurnID:    turnID,
				Intent:    sg.Description,
				Slots:     pick(slots, "next_offset", "page_size"),
			})

		default:
			// Metadata-lookup worker (or any other worker declaring
			// memorable_slots outside the query family): analysis_result.
			artifacts = append(artifacts, state.KeyArtifact{
				Type:      state.ArtifactAnalysisResult,
				SubGoalID: sg.ID,
				TurnID:    turnID,
				Intent:    sg.Description,
				Slots:     pick(slots, capability.MemorableSlots...),
			})
		}
	}
	return artifacts
}

func hasSlot(slots map[string]any, name string) bool {
	_, ok := slots[name]
	return ok
}

func pick(slots map[string]any, names ...string) map[string]any {
	out := make(map[string]any, len(names))
	for _, n := range names {
		if v, ok := slots[n]; ok {
			out[n] = v
		}
	}
	return out
}

// bundleTarget reads params["bundles_with_sub_goal"] and confirms the
// referent sub-goal exists (spec §4.7.1: bundling is one-to-many only in
// the query-execution → query-generation direction).
func bundleTarget(params map[string]any, byGoalID map[int]state.SubGoal) (int, bool) {
	raw, ok := params["bundles_with_sub_goal"]
	if !ok {
		return 0, false
	}
	var g int
	switch v := raw.(type) {
	case int:
		g = v
	case float64:
		g = int(v)
	default:
		return 0, false
	}
	if _, ok := byGoalID[g]; !ok {
		return 0, false
	}
	return g, true
}

func findArtifact(artifacts []state.KeyArtifact, subGoalID int) int {
	for i, a := range artifacts {
		if a.Type == state.ArtifactEsQuery && a.SubGoalID == subGoalID {
			return i
		}
	}
	return -1
}
