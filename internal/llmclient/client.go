// Package llmclient defines the LLM client contract required by the core
// (spec §6): produce a free-form string, or a structured record of a given
// schema, from (system message, template, variables). Timeouts, retries, and
// provider selection are the collaborator's concern; the core only sees
// these two operations and treats failures as caller-visible errors.
package llmclient

import "context"

// Client is the collaborator contract the Normalizer (C3) and Planner (C4)
// depend on. Implementations wrap a specific provider SDK.
type Client interface {
	// Complete produces a free-form string completion from a system message,
	// a prompt template, and template variables.
	Complete(ctx context.Context, system, template string, vars map[string]any) (string, error)

	// Structured produces an instance of the schema described by into,
	// populating it in place from the model's structured output. into must
	// be a pointer. Implementations are responsible for parsing/validating
	// the provider's structured response against the target type (spec §9,
	// "Dynamic LLM structured output types" — the core sees typed values).
	Structured(ctx context.Context, system, template string, vars map[string]any, into any) error
}
