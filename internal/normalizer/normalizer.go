// Package normalizer implements the Normalizer (C3): the turn's entry
// component. It turns a raw user utterance plus conversation history into a
// normalized goal and the context slot table at completed_outputs[0] (spec
// §4.3).
package normalizer

import (
	"context"
	"fmt"

	"github.com/beefkknd/deterministic-planner/internal/llmclient"
	"github.com/beefkknd/deterministic-planner/internal/memory"
	"github.com/beefkknd/deterministic-planner/internal/state"
	"github.com/beefkknd/deterministic-planner/internal/telemetry"
)

// historyWindow bounds how many prior turns are formatted into the
// normalizer's prompt; earlier turns are elided (spec §4.3).
const historyWindow = 5

const systemPrompt = `You normalize a user's raw request into a single actionable
goal for a downstream planner. Resolve pronouns against the recent
conversation. Number multi-intent requests. Sharpen vague phrasing. If the
user is referencing prior search results (e.g. "show more", "next page",
"go on"), say so explicitly.`

const template = `Conversation (oldest first):
{{range .History}}- {{.HumanMessage}} => {{.AIResponse}}
{{end}}
User utterance: {{.Utterance}}`

// TemplateName returns the prompt template used to key FakeClient responses,
// for collaborators outside this package that need to script it (e.g. the
// driver's end-to-end tests).
func TemplateName() string { return template }

// decision is the structured response the LLM collaborator produces.
type decision struct {
	Question              string `json:"question"`
	Reasoning              string `json:"reasoning"`
	UserEsQuery            string `json:"user_es_query"`
	ForceExecute           bool   `json:"force_execute"`
	ReferencesPriorResults bool   `json:"references_prior_results"`
}

// Normalizer wraps an llmclient.Client to produce the normalized question
// and context slot table (spec §4.3).
type Normalizer struct {
	client llmclient.Client
	logger telemetry.Logger
}

// New constructs a Normalizer. logger may be telemetry.NoopLogger{}.
func New(client llmclient.Client, logger telemetry.Logger) *Normalizer {
	return &Normalizer{client: client, logger: logger}
}

// Result is what the Normalizer contributes to a fresh PlanState.
type Result struct {
	Question        string
	PlannerReasoning string
	ContextSlots     map[string]any
}

// Normalize produces Question, PlannerReasoning, and the completed_outputs[0]
// context slot table from utterance and history. On any collaborator error
// it falls back to the original utterance and records the error in
// PlannerReasoning rather than failing the turn (spec §4.3 failure policy).
func (n *Normalizer) Normalize(ctx context.Context, utterance string, history []state.TurnSummary) Result {
	window := memory.RecentWindow(history, historyWindow)

	var dec decision
	err := n.client.Structured(ctx, systemPrompt, template, map[string]any{
		"History":   window,
		"Utterance": utterance,
	}, &dec)
	if err != nil {
		n.logger.Warn(ctx, "normalizer: collaborator failed, falling back to original utterance",
			"error", err.Error())
		return Result{
			Question:         utterance,
			PlannerReasoning: fmt.Sprintf("normalizer: fallback after error: %v", err),
			ContextSlots:     map[string]any{},
		}
	}

	question := dec.Question
	if question == "" {
		question = utterance
	}

	slots := map[string]any{}
	if dec.UserEsQuery != "" {
		slots["user_es_query"] = dec.UserEsQuery
	}
	if dec.ForceExecute {
		slots["force_execute"] = true
	}
	if dec.ReferencesPriorResults {
		if artifact, ok := memory.LatestArtifact(history, state.ArtifactEsQuery); ok {
			if q, ok := artifact.Slots["es_query"]; ok {
				slots["prior_es_query"] = q
			}
			if offset, ok := artifact.Slots["next_offset"]; ok {
				slots["prior_next_offset"] = offset
			}
			if size, ok := artifact.Slots["page_size"]; ok {
				slots["prior_page_size"] = size
			}
		}
	}

	return Result{
		Question:         question,
		PlannerReasoning: dec.Reasoning,
		ContextSlots:     slots,
	}
}
