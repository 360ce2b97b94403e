// Package synthesizer implements the Synthesizer (C8): produces the final
// user-visible answer from a planner-specified (or fallback-discovered) set
// of deliverable slots via a two-phase narrative+display assembly (spec
// §4.8).
package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/beefkknd/deterministic-planner/internal/llmclient"
	"github.com/beefkknd/deterministic-planner/internal/registry"
	"github.com/beefkknd/deterministic-planner/internal/state"
)

const fallbackMessage = "I wasn't able to complete your request."

// passthroughSlots is the closed set of fallback slot names scanned when the
// planner supplied no synthesis_inputs (spec §4.8).
var passthroughSlots = []string{"answer", "formatted_results", "analysis", "clarification_message", "explanation"}

const narrativeSystemPrompt = `You are the final summarization step of a task
planner. Weave the given worker outputs into one coherent, concise answer to
the user's question. Do not invent facts not present in the outputs.`

const narrativeTemplate = `User question: {{.Question}}

Worker outputs to summarize:
{{.Narrative}}`

// Synthesizer is the C8 implementation.
type Synthesizer struct {
	client   llmclient.Client
	registry *registry.Registry
}

// New constructs a Synthesizer. client is used only when at least one
// selected slot has synthesis_mode=narrative.
func New(client llmclient.Client, reg *registry.Registry) *Synthesizer {
	return &Synthesizer{client: client, registry: reg}
}

// Synthesize selects slots from st (via SynthesisInputs or passthrough
// fallback), partitions them by synthesis_mode, and assembles the final
// response (spec §4.8). Returns the next PlanState with Status=Done and
// FinalResponse populated.
func (s *Synthesizer) Synthesize(ctx context.Context, st state.PlanState) (state.PlanState, error) {
	selected := s.selectInputs(st)

	var narrativeParts, displayParts []string
	for name, value := range selected {
		mode := s.modeFor(st, name)
		switch mode {
		case registry.Narrative:
			narrativeParts = append(narrativeParts, fmt.Sprintf("%v", value))
		case registry.Display:
			displayParts = append(displayParts, fmt.Sprintf("%v", value))
		case registry.Hidden:
			// excluded
		}
	}

	var narrativePart string
	if len(narrativeParts) > 0 {
		summary, err := s.client.Complete(ctx, narrativeSystemPrompt, narrativeTemplate, map[string]any{
			"Question":  st.Question,
			"Narrative": strings.Join(narrativeParts, "\n\n"),
		})
		if err != nil {
			// Fall back to the raw concatenation rather than failing the
			// turn at its final step; the LLM summarizer is a convenience,
			// not a gate on whether the user gets an answer.
			summary = strings.Join(narrativeParts, "\n\n")
		}
		narrativePart = summary
	}
	displayPart := strings.Join(displayParts, "\n\n")

	final := assemble(narrativePart, displayPart)

	st.FinalResponse = final
	st.Status = state.Done
	st.PlannerReasoning = fmt.Sprintf("synthesizer: assembled response from %d slot(s)", len(selected))
	return st, nil
}

// selectInputs implements spec §4.8 input selection: SynthesisInputs when
// present and non-empty, otherwise the first passthrough slot found on each
// completed deliverable sub-goal.
func (s *Synthesizer) selectInputs(st state.PlanState) map[string]any {
	selected := map[string]any{}
	if len(st.SynthesisInputs) > 0 {
		for name, ref := range st.SynthesisInputs {
			if slots, ok := st.CompletedOutputs[ref.FromSubGoal]; ok {
				if v, ok := slots[ref.Slot]; ok {
					selected[name] = v
				}
			}
		}
		return selected
	}

	for _, sg := range st.SubGoals {
		if sg.GoalType != state.Deliverable || sg.Status != state.Success {
			continue
		}
		slots, ok := st.CompletedOutputs[sg.ID]
		if !ok {
			continue
		}
		for _, name := range passthroughSlots {
			if v, ok := slots[name]; ok {
				selected[fmt.Sprintf("sub_goal_%d_%s", sg.ID, name)] = v
				break
			}
		}
	}
	return selected
}

// modeFor finds which sub-goal's worker produced the selected slot named
// name and returns its registry synthesis_mode. SynthesisInputs entries are
// looked up by scanning sub_goals for the matching InputRef; passthrough
// entries encode their origin sub-goal id in the synthetic key.
func (s *Synthesizer) modeFor(st state.PlanState, name string) registry.SynthesisMode {
	if ref, ok := st.SynthesisInputs[name]; ok {
		return s.modeForSubGoal(st, ref.FromSubGoal)
	}
	var subGoalID int
	if _, err := fmt.Sscanf(name, "sub_goal_%d_", &subGoalID); err == nil {
		return s.modeForSubGoal(st, subGoalID)
	}
	return registry.Hidden
}

func (s *Synthesizer) modeForSubGoal(st state.PlanState, subGoalID int) registry.SynthesisMode {
	for _, sg := range st.SubGoals {
		if sg.ID == subGoalID {
			if capability, ok := s.registry.Lookup(sg.Worker); ok {
				return capability.SynthesisMode
			}
			break
		}
	}
	return registry.Hidden
}

func assemble(narrativePart, displayPart string) string {
	switch {
	case narrativePart != "" && displayPart != "":
		return narrativePart + "\n\n" + displayPart
	case narrativePart != "":
		return narrativePart
	case displayPart != "":
		return displayPart
	default:
		return fallbackMessage
	}
}
