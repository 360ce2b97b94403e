// Package workers implements the concrete worker bodies composed by the core
// (spec §1: "Worker bodies are collaborators too — this spec fixes their
// contracts and how the core composes them, not their internal domain
// logic"). Each body is grounded on one of the original system's nodes
// (f04-f12): a help-desk FAQ answerer, an entity-resolution lookup, a
// search-query generator/executor/paginator, a clarification prompt, a
// metadata explainer, a results renderer, and a deep-analysis summarizer.
package workers

import (
	"context"
	"fmt"

	"github.com/beefkknd/deterministic-planner/internal/dataservice"
	"github.com/beefkknd/deterministic-planner/internal/executor"
	"github.com/beefkknd/deterministic-planner/internal/llmclient"
	"github.com/beefkknd/deterministic-planner/internal/registry"
	"github.com/beefkknd/deterministic-planner/internal/state"
)

// Worker names, matching the original system's registered capability names.
const (
	CommonHelpdesk  = "common_helpdesk"
	MetadataLookup  = "metadata_lookup"
	EsQueryGen      = "es_query_gen"
	EsQueryExec     = "es_query_exec"
	PageQuery       = "page_query"
	ClarifyQuestion = "clarify_question"
	ExplainMetadata = "explain_metadata"
	ShowResults     = "show_results"
	AnalyzeResults  = "analyze_results"
)

// Set holds the LLM and data-service collaborators shared across worker
// bodies (spec §5 "Shared resources": these are safe for concurrent use).
type Set struct {
	LLM  llmclient.Client
	Data dataservice.Service
}

// RegisterAll registers every worker's capability descriptor into reg and
// its executable body into bodies.
func (s *Set) RegisterAll(reg *registry.Registry, bodies *executor.Bodies) {
	reg.MustRegister(registry.Capability{
		Name:        CommonHelpdesk,
		Description: "Answers general help-desk and FAQ questions directly from the user's goal.",
		Outputs:     []string{"answer"},
		GoalType:    string(state.Deliverable),
		SynthesisMode: registry.Narrative,
	})
	bodies.Register(CommonHelpdesk, s.commonHelpdesk)

	reg.MustRegister(registry.Capability{
		Name:           MetadataLookup,
		Description:    "Resolves entity names mentioned in the goal and classifies query intent.",
		Outputs:        []string{"entity_mappings", "intent_type"},
		GoalType:       string(state.Support),
		SynthesisMode:  registry.Hidden,
		MemorableSlots: []string{"entity_mappings", "intent_type"},
	})
	bodies.Register(MetadataLookup, s.metadataLookup)

	reg.MustRegister(registry.Capability{
		Name:           EsQueryGen,
		Description:    "Generates a search or aggregation query document from the normalized goal and resolved entities.",
		Outputs:        []string{"es_query"},
		GoalType:       string(state.Support),
		SynthesisMode:  registry.Hidden,
		MemorableSlots: []string{"es_query"},
	})
	bodies.Register(EsQueryGen, s.esQueryGen)

	reg.MustRegister(registry.Capability{
		Name:           EsQueryExec,
		Description:    "Executes a generated query against the data service and formats the first page of results.",
		Outputs:        []string{"formatted_results", "next_offset", "page_size"},
		GoalType:       string(state.Deliverable),
		SynthesisMode:  registry.Display,
		MemorableSlots: []string{"next_offset", "page_size"},
	})
	bodies.Register(EsQueryExec, s.esQueryExec)

	reg.MustRegister(registry.Capability{
		Name:           PageQuery,
		Description:    "Continues a prior query at its saved cursor, returning the next page of results.",
		Outputs:        []string{"formatted_results", "es_query", "next_offset", "page_size"},
		GoalType:       string(state.Deliverable),
		SynthesisMode:  registry.Display,
		MemorableSlots: []string{"es_query", "next_offset", "page_size"},
	})
	bodies.Register(PageQuery, s.pageQuery)

	reg.MustRegister(registry.Capability{
		Name:          ClarifyQuestion,
		Description:   "Produces a clarification prompt when the goal is too ambiguous to execute.",
		Outputs:       []string{"clarification_message"},
		GoalType:      string(state.Deliverable),
		SynthesisMode: registry.Narrative,
	})
	bodies.Register(ClarifyQuestion, s.clarifyQuestion)

	reg.MustRegister(registry.Capability{
		Name:          ExplainMetadata,
		Description:   "Explains the resolved fields and data structure to the user instead of running a query.",
		Outputs:       []string{"explanation"},
		GoalType:      string(state.Deliverable),
		SynthesisMode: registry.Narrative,
	})
	bodies.Register(ExplainMetadata, s.explainMetadata)

	reg.MustRegister(registry.Capability{
		Name:          ShowResults,
		Description:   "Renders raw query hits into a user-facing table or list without further LLM involvement.",
		Outputs:       []string{"formatted_results"},
		GoalType:      string(state.Deliverable),
		SynthesisMode: registry.Display,
	})
	bodies.Register(ShowResults, s.showResults)

	reg.MustRegister(registry.Capability{
		Name:          AnalyzeResults,
		Description:   "Performs deep analysis over query results: comparisons, trends, and insights.",
		Outputs:       []string{"analysis"},
		GoalType:      string(state.Deliverable),
		SynthesisMode: registry.Narrative,
	})
	bodies.Register(AnalyzeResults, s.analyzeResults)
}

const helpdeskSystem = `You are a help-desk assistant. Answer the user's question directly and concisely.`
const helpdeskTemplate = `Question: {{.Description}}`

func (s *Set) commonHelpdesk(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
	answer, err := s.LLM.Complete(ctx, helpdeskSystem, helpdeskTemplate, map[string]any{
		"Description": input.SubGoal.Description,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"answer": answer}, nil
}

const metadataSystem = `Identify named entities in the request and classify its intent as one of:
search, aggregate, or explain. Respond with a JSON object.`
const metadataTemplate = `Request: {{.Description}}`

type metadataDecision struct {
	EntityMappings map[string]any `json:"entity_mappings"`
	IntentType     string         `json:"intent_type"`
}

func (s *Set) metadataLookup(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
	var dec metadataDecision
	if err := s.LLM.Structured(ctx, metadataSystem, metadataTemplate, map[string]any{
		"Description": input.SubGoal.Description,
	}, &dec); err != nil {
		return nil, err
	}
	return map[string]any{"entity_mappings": dec.EntityMappings, "intent_type": dec.IntentType}, nil
}

const queryGenSystem = `Generate a query document for the data service as a JSON object with a
"match" key (free-text filter) and, for aggregations, a "facet_by" key.`
const queryGenTemplate = `Goal: {{.Description}}
Resolved entities: {{.Entities}}`

type queryGenDecision struct {
	Query map[string]any `json:"query"`
}

func (s *Set) esQueryGen(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
	var dec queryGenDecision
	if err := s.LLM.Structured(ctx, queryGenSystem, queryGenTemplate, map[string]any{
		"Description": input.SubGoal.Description,
		"Entities":    input.ResolvedInputs["entity_mappings"],
	}, &dec); err != nil {
		return nil, err
	}
	return map[string]any{"es_query": dec.Query}, nil
}

func (s *Set) esQueryExec(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
	query := input.ResolvedInputs["query"]
	size := paramInt(input.SubGoal.Params, "page_size", 20)
	result, err := s.Data.SearchPage(ctx, query, size, 0)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"formatted_results": formatHits(result.Hits, result.Total),
		"next_offset":        size,
		"page_size":          size,
	}, nil
}

func (s *Set) pageQuery(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
	query := input.ResolvedInputs["query"]
	offset := paramInt(input.SubGoal.Params, "offset", 0)
	if v, ok := input.ResolvedInputs["prior_next_offset"]; ok {
		offset = toInt(v, offset)
	}
	size := paramInt(input.SubGoal.Params, "page_size", 20)
	if v, ok := input.ResolvedInputs["prior_page_size"]; ok {
		size = toInt(v, size)
	}
	result, err := s.Data.SearchPage(ctx, query, size, offset)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"formatted_results": formatHits(result.Hits, result.Total),
		"es_query":          query,
		"next_offset":       offset + size,
		"page_size":         size,
	}, nil
}

const clarifySystem = `The request is ambiguous. Write a short, specific question asking the user
for the missing detail.`
const clarifyTemplate = `Request: {{.Description}}`

func (s *Set) clarifyQuestion(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
	message, err := s.LLM.Complete(ctx, clarifySystem, clarifyTemplate, map[string]any{
		"Description": input.SubGoal.Description,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"clarification_message": message}, nil
}

const explainSystem = `Explain the resolved data fields and their meaning to a non-technical user.`
const explainTemplate = `Fields: {{.Entities}}
Goal: {{.Description}}`

func (s *Set) explainMetadata(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
	explanation, err := s.LLM.Complete(ctx, explainSystem, explainTemplate, map[string]any{
		"Entities":    input.ResolvedInputs["entity_mappings"],
		"Description": input.SubGoal.Description,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"explanation": explanation}, nil
}

func (s *Set) showResults(_ context.Context, input state.WorkerInput) (map[string]any, error) {
	hits, _ := input.ResolvedInputs["hits"].([]map[string]any)
	total := toInt(input.ResolvedInputs["total"], len(hits))
	return map[string]any{"formatted_results": formatHits(hits, total)}, nil
}

const analyzeSystem = `Analyze the given query results: surface comparisons, trends, and
notable insights relevant to the user's goal.`
const analyzeTemplate = `Goal: {{.Description}}
Results: {{.Results}}`

func (s *Set) analyzeResults(ctx context.Context, input state.WorkerInput) (map[string]any, error) {
	analysis, err := s.LLM.Complete(ctx, analyzeSystem, analyzeTemplate, map[string]any{
		"Description": input.SubGoal.Description,
		"Results":     input.ResolvedInputs["formatted_results"],
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"analysis": analysis}, nil
}

func formatHits(hits []map[string]any, total int) string {
	if len(hits) == 0 {
		return fmt.Sprintf("No results found (%d total).", total)
	}
	out := fmt.Sprintf("%d of %d result(s):\n", len(hits), total)
	for _, h := range hits {
		out += fmt.Sprintf("- %v\n", h)
	}
	return out
}

func paramInt(params map[string]any, key string, fallback int) int {
	v, ok := params[key]
	if !ok {
		return fallback
	}
	return toInt(v, fallback)
}

func toInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return fallback
	}
}
