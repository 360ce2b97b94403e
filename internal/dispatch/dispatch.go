// Package dispatch implements the Dispatch Router (C5): a pure function of
// PlanState that decides where a round goes next and, when sub-goals are
// ready, hydrates their inputs for the Worker Executor (spec §4.5).
package dispatch

import "github.com/beefkknd/deterministic-planner/internal/state"

// Route is the Dispatch Router's routing decision.
type Route string

const (
	// RouteSynthesize means status was done; proceed to the Synthesizer.
	RouteSynthesize Route = "synthesize"
	// RouteTerminate means status was failed; end the turn.
	RouteTerminate Route = "terminate"
	// RouteDispatch means one or more sub-goals are ready; Ready holds them.
	RouteDispatch Route = "dispatch"
	// RouteJoin means executing with no ready sub-goal; advance via
	// Join/Reduce as a no-op round (spec §4.5).
	RouteJoin Route = "join"
)

// Decide computes the routing decision for st (spec §4.5).
func Decide(st state.PlanState) Route {
	switch st.Status {
	case state.Done:
		return RouteSynthesize
	case state.PlanFailed:
		return RouteTerminate
	}

	ready := Ready(st)
	if len(ready) == 0 {
		return RouteJoin
	}
	return RouteDispatch
}

// Ready returns the pending sub-goals whose every InputRef resolves against
// st.CompletedOutputs, in st.SubGoals order. Dispatch order among ready
// sub-goals is otherwise unspecified (spec §4.5).
func Ready(st state.PlanState) []state.SubGoal {
	var ready []state.SubGoal
	for _, sg := range st.SubGoals {
		if sg.Status != state.Pending {
			continue
		}
		if isReady(st, sg) {
			ready = append(ready, sg)
		}
	}
	return ready
}

func isReady(st state.PlanState, sg state.SubGoal) bool {
	for _, ref := range sg.Inputs {
		slots, ok := st.CompletedOutputs[ref.FromSubGoal]
		if !ok {
			return false
		}
		if _, ok := slots[ref.Slot]; !ok {
			return false
		}
	}
	return true
}

// Hydrate resolves sg's declared InputRefs against st.CompletedOutputs into a
// WorkerInput. Callers must only call Hydrate on sub-goals reported by Ready.
func Hydrate(st state.PlanState, sg state.SubGoal) state.WorkerInput {
	resolved := make(map[string]any, len(sg.Inputs))
	for name, ref := range sg.Inputs {
		slots := st.CompletedOutputs[ref.FromSubGoal]
		resolved[name] = slots[ref.Slot]
	}
	return state.WorkerInput{SubGoal: sg, ResolvedInputs: resolved}
}
