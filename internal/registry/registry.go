// Package registry implements the Worker Registry (C2): a declarative,
// process-wide, read-only-after-startup table of worker capability
// descriptors (spec §4.2).
//
// Unlike the source system's decorator-registered, dedup-by-name-with-silent-
// ignore behavior (spec §9 design note, flagged as a possibly-buggy
// ambiguity), this registry requires explicit registration in one place and
// treats a duplicate name as a startup error.
package registry

import "fmt"

// SynthesisMode controls whether a worker's output is woven into the
// narrative answer, appended verbatim, or withheld (spec glossary).
type SynthesisMode string

const (
	Narrative SynthesisMode = "narrative"
	Display   SynthesisMode = "display"
	Hidden    SynthesisMode = "hidden"
)

// Capability is a registry entry: {name, description, preconditions,
// outputs, goal_type, memorable_slots, synthesis_mode} (spec §3, §6).
type Capability struct {
	Name            string
	Description     string
	Preconditions   []string
	Outputs         []string
	GoalType        string
	MemorableSlots  []string
	SynthesisMode   SynthesisMode
}

// Registry is a read-only-after-startup lookup table of Capability entries,
// keyed by name. It is read by the Planner (to inform the LLM and to check
// InputRef slots against declared outputs), Join/Reduce (to pick
// memorable_slots), and the Synthesizer (to pick synthesis_mode).
type Registry struct {
	entries map[string]Capability
	order   []string
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Capability)}
}

// Register adds a Capability to the registry. Unlike the source system's
// import-time decorator registration, this requires an explicit call during
// startup and returns an error on a duplicate name rather than silently
// ignoring the later registration (spec §9).
func (r *Registry) Register(c Capability) error {
	if c.Name == "" {
		return fmt.Errorf("registry: capability name must not be empty")
	}
	if _, exists := r.entries[c.Name]; exists {
		return fmt.Errorf("registry: duplicate capability registration for %q", c.Name)
	}
	if c.SynthesisMode == "" {
		c.SynthesisMode = Hidden
	}
	r.entries[c.Name] = c
	r.order = append(r.order, c.Name)
	return nil
}

// MustRegister panics if Register returns an error. Intended for startup
// routines where a registration conflict is a programming error.
func (r *Registry) MustRegister(c Capability) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Lookup returns the Capability registered under name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	c, ok := r.entries[name]
	return c, ok
}

// List returns all registered capabilities in registration order, used to
// format the registry listing presented to the planner's LLM collaborator.
func (r *Registry) List() []Capability {
	out := make([]Capability, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// OutputsOf returns the declared output slot names for a registered worker,
// used by InputRef validation when a referenced sub-goal has not completed
// yet and the only available slot set is the registry's declared outputs
// (spec §4.4 rule 4).
func (r *Registry) OutputsOf(name string) ([]string, bool) {
	c, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return c.Outputs, true
}
