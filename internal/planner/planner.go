// Package planner implements the Planner (C4): the per-round decision
// engine that reads PlanState and an external LLM collaborator and emits
// either new sub-goals, a done decision with synthesis inputs, or a failed
// decision (spec §4.4).
package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/beefkknd/deterministic-planner/internal/llmclient"
	"github.com/beefkknd/deterministic-planner/internal/registry"
	"github.com/beefkknd/deterministic-planner/internal/state"
	"github.com/beefkknd/deterministic-planner/internal/telemetry"
	"github.com/beefkknd/deterministic-planner/internal/werrors"
)

const maxValuePreview = 200

const systemPrompt = `You are the planning stage of a deterministic task
planner. You are given the user's goal, a registry of available workers,
completed outputs, failed sub-goals, and pending sub-goals awaiting their
dependencies. Decide one of three actions: "continue" (propose new
sub-goals), "done" (select which completed slots answer the question), or
"failed" (the goal cannot be satisfied). Never re-propose a sub-goal
equivalent to one already pending.`

const template = `User goal: {{.Question}}

Registry:
{{.Registry}}

Completed outputs:
{{.CompletedOutputs}}

Failed sub-goals:
{{.Failed}}

Pending sub-goals:
{{.Pending}}

Round {{.Round}} of {{.MaxRounds}}.`

// TemplateName returns the prompt template used to key FakeClient responses,
// for collaborators outside this package that need to script it (e.g. the
// driver's end-to-end tests).
func TemplateName() string { return template }

type inputRefJSON struct {
	FromSubGoal int    `json:"from_sub_goal"`
	Slot        string `json:"slot"`
}

type subGoalJSON struct {
	Worker      string                  `json:"worker"`
	Description string                  `json:"description"`
	Inputs      map[string]inputRefJSON `json:"inputs"`
	Params      map[string]any          `json:"params"`
	GoalType    string                  `json:"goal_type"`
}

type llmDecision struct {
	Action          string                  `json:"action"`
	Reasoning       string                  `json:"reasoning"`
	SubGoals        []subGoalJSON           `json:"sub_goals"`
	SynthesisInputs map[string]inputRefJSON `json:"synthesis_inputs"`
	FailureReason   string                  `json:"failure_reason"`
}

// Planner is the LLM-backed C4 implementation.
type Planner struct {
	client   llmclient.Client
	registry *registry.Registry
	logger   telemetry.Logger
}

// New constructs a Planner. logger may be telemetry.NoopLogger{}.
func New(client llmclient.Client, reg *registry.Registry, logger telemetry.Logger) *Planner {
	return &Planner{client: client, registry: reg, logger: logger}
}

// Plan runs one round of the decision engine over st and returns the next
// PlanState (spec §4.4). The returned error is always nil: every failure,
// including a collaborator error caused by context cancellation, an LLM
// failure or a malformed decision, is folded into a status=failed PlanState,
// so the only externally visible signal is PlanState.Status.
func (p *Planner) Plan(ctx context.Context, st state.PlanState) (state.PlanState, error) {
	// Rule 1: round budget.
	if st.Round > st.MaxRounds {
		st.Status = state.PlanFailed
		st.PlannerReasoning = fmt.Sprintf("planner: round %d exceeds max_rounds %d (%s)", st.Round, st.MaxRounds, werrors.KindBudget)
		return st, nil
	}
	// Rule 2: empty question.
	if strings.TrimSpace(st.Question) == "" {
		st.Status = state.PlanFailed
		st.PlannerReasoning = "planner: empty question"
		return st, nil
	}

	vars := map[string]any{
		"Question":         st.Question,
		"Registry":         formatRegistry(p.registry),
		"CompletedOutputs": formatCompletedOutputs(st.CompletedOutputs),
		"Failed":           formatFailed(st.SubGoals),
		"Pending":          formatPending(st.SubGoals),
		"Round":            st.Round,
		"MaxRounds":        st.MaxRounds,
	}

	var dec llmDecision
	if err := p.client.Structured(ctx, systemPrompt, template, vars, &dec); err != nil {
		p.logger.Error(ctx, "planner: collaborator failed", "error", err.Error())
		st.Status = state.PlanFailed
		st.PlannerReasoning = werrors.Wrap(werrors.KindPlanning, "planner collaborator failed", err).Error()
		return st, nil
	}

	switch dec.Action {
	case "done":
		return p.planDone(st, dec), nil
	case "failed":
		st.Status = state.PlanFailed
		if dec.FailureReason != "" {
			st.PlannerReasoning = dec.FailureReason
		} else {
			st.PlannerReasoning = "planner: declared failed"
		}
		return st, nil
	default:
		return p.planContinue(st, dec)
	}
}

func (p *Planner) planDone(st state.PlanState, dec llmDecision) state.PlanState {
	valid := map[string]state.InputRef{}
	var dropped []string
	for name, ref := range dec.SynthesisInputs {
		slots, ok := st.CompletedOutputs[ref.FromSubGoal]
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		if _, ok := slots[ref.Slot]; !ok {
			dropped = append(dropped, name)
			continue
		}
		valid[name] = state.InputRef{FromSubGoal: ref.FromSubGoal, Slot: ref.Slot}
	}
	st.SynthesisInputs = valid
	st.Status = state.Done
	reasoning := dec.Reasoning
	if len(dropped) > 0 {
		reasoning = fmt.Sprintf("%s (dropped invalid synthesis inputs: %s)", reasoning, strings.Join(dropped, ", "))
	}
	st.PlannerReasoning = reasoning
	return st
}

func (p *Planner) planContinue(st state.PlanState, dec llmDecision) (state.PlanState, error) {
	// Rule 3: no-op guard.
	if len(dec.SubGoals) == 0 {
		st.Status = state.PlanFailed
		st.PlannerReasoning = "planner: continue decision proposed no sub-goals"
		return st, nil
	}

	existingIDs := map[int]bool{}
	maxID := 0
	for _, sg := range st.SubGoals {
		existingIDs[sg.ID] = true
		if sg.ID > maxID {
			maxID = sg.ID
		}
	}

	// newBatchIds assigned up front so forward references within the batch
	// resolve (spec §4.4 rule 4: validIds includes newBatchIds).
	nextID := maxID + 1
	newBatchIDs := map[int]bool{}
	batchWorkers := map[int]string{}
	for _, proposed := range dec.SubGoals {
		newBatchIDs[nextID] = true
		batchWorkers[nextID] = proposed.Worker
		nextID++
	}

	validIDs := map[int]bool{}
	for id := range existingIDs {
		validIDs[id] = true
	}
	for id := range newBatchIDs {
		validIDs[id] = true
	}
	for id := range st.CompletedOutputs {
		validIDs[id] = true
	}

	existingByID := map[int]state.SubGoal{}
	for _, sg := range st.SubGoals {
		existingByID[sg.ID] = sg
		batchWorkers[sg.ID] = sg.Worker
	}

	id := maxID + 1
	var created []state.SubGoal
	for _, proposed := range dec.SubGoals {
		goalType := state.GoalType(proposed.GoalType)
		if goalType != state.Deliverable {
			goalType = state.Support
		}
		outputs, _ := p.registry.OutputsOf(proposed.Worker)
		batchWorkers[id] = proposed.Worker

		sg := state.SubGoal{
			ID:          id,
			Worker:      proposed.Worker,
			Description: proposed.Description,
			Params:      proposed.Params,
			Outputs:     outputs,
			GoalType:    goalType,
			Status:      state.Pending,
		}

		inputs := make(map[string]state.InputRef, len(proposed.Inputs))
		var badRef string
		for name, ref := range proposed.Inputs {
			inputs[name] = state.InputRef{FromSubGoal: ref.FromSubGoal, Slot: ref.Slot}
			if !validIDs[ref.FromSubGoal] {
				badRef = fmt.Sprintf("%s: from_sub_goal %d does not exist", name, ref.FromSubGoal)
				continue
			}
			if !p.slotAvailable(st, existingByID, batchWorkers, ref) {
				badRef = fmt.Sprintf("%s: slot %q not produced by sub-goal %d", name, ref.Slot, ref.FromSubGoal)
			}
		}
		sg.Inputs = inputs

		if badRef != "" {
			sg.Status = state.Failed
			sg.Error = fmt.Sprintf("planner: invalid input reference: %s (%s)", badRef, werrors.KindInputRef)
		}

		created = append(created, sg)
		id++
	}

	st.SubGoals = append(st.SubGoals, created...)
	st.Status = state.Executing
	st.PlannerReasoning = dec.Reasoning
	return st, nil
}

// slotAvailable checks whether ref.Slot is in the source's slot set: the
// completed outputs if present, otherwise the registry's declared outputs
// for the source sub-goal's worker (spec §4.4 rule 4).
func (p *Planner) slotAvailable(st state.PlanState, existingByID map[int]state.SubGoal, batchWorkers map[int]string, ref state.InputRef) bool {
	if ref.FromSubGoal == state.ContextSlot {
		slots, ok := st.CompletedOutputs[state.ContextSlot]
		if !ok {
			return true // slot 0 may not exist yet in tests; treat as permissive
		}
		_, ok = slots[ref.Slot]
		return ok
	}
	if slots, ok := st.CompletedOutputs[ref.FromSubGoal]; ok {
		_, ok := slots[ref.Slot]
		return ok
	}
	worker := batchWorkers[ref.FromSubGoal]
	if worker == "" {
		if sg, ok := existingByID[ref.FromSubGoal]; ok {
			worker = sg.Worker
		}
	}
	if worker == "" {
		return false
	}
	outputs, ok := p.registry.OutputsOf(worker)
	if !ok {
		return false
	}
	for _, o := range outputs {
		if o == ref.Slot {
			return true
		}
	}
	return false
}

func formatRegistry(reg *registry.Registry) string {
	var b strings.Builder
	for _, c := range reg.List() {
		fmt.Fprintf(&b, "- %s (%s, outputs: %s): %s\n", c.Name, c.GoalType, strings.Join(c.Outputs, ","), c.Description)
	}
	return b.String()
}

func formatCompletedOutputs(outputs map[int]map[string]any) string {
	ids := make([]int, 0, len(outputs))
	for id := range outputs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "[%d]\n", id)
		slots := outputs[id]
		keys := make([]string, 0, len(slots))
		for k := range slots {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s = %s\n", k, preview(slots[k]))
		}
	}
	return b.String()
}

func preview(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > maxValuePreview {
		return s[:maxValuePreview] + "..."
	}
	return s
}

func formatFailed(subGoals []state.SubGoal) string {
	var b strings.Builder
	for _, sg := range subGoals {
		if sg.Status == state.Failed {
			fmt.Fprintf(&b, "- [%d] %s: %s\n", sg.ID, sg.Worker, sg.Error)
		}
	}
	return b.String()
}

func formatPending(subGoals []state.SubGoal) string {
	var b strings.Builder
	for _, sg := range subGoals {
		if sg.Status == state.Pending {
			var unmet []string
			for name, ref := range sg.Inputs {
				unmet = append(unmet, fmt.Sprintf("%s<-[%d].%s", name, ref.FromSubGoal, ref.Slot))
			}
			fmt.Fprintf(&b, "- [%d] %s waiting on: %s\n", sg.ID, sg.Worker, strings.Join(unmet, ", "))
		}
	}
	return b.String()
}
