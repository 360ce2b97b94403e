package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// manifestEntry mirrors Capability in a YAML-friendly shape for the
// dev-mode worker-capability manifest.
type manifestEntry struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Preconditions  []string `yaml:"preconditions"`
	Outputs        []string `yaml:"outputs"`
	GoalType       string   `yaml:"goal_type"`
	MemorableSlots []string `yaml:"memorable_slots"`
	SynthesisMode  string   `yaml:"synthesis_mode"`
}

// LoadFile decodes a YAML worker-capability manifest and registers every
// entry into r. Intended for dev-mode iteration on worker metadata without
// recompiling the worker bodies; the registry itself remains read-only after
// this call returns (spec §4.2, §9) — callers that want to pick up manifest
// edits build a fresh Registry and atomically swap it in, they never mutate
// a Registry that is already serving a turn.
func LoadFile(r *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("registry: read manifest %s: %w", path, err)
	}
	var entries []manifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("registry: decode manifest %s: %w", path, err)
	}
	for _, e := range entries {
		if err := r.Register(Capability{
			Name:           e.Name,
			Description:    e.Description,
			Preconditions:  e.Preconditions,
			Outputs:        e.Outputs,
			GoalType:       e.GoalType,
			MemorableSlots: e.MemorableSlots,
			SynthesisMode:  SynthesisMode(e.SynthesisMode),
		}); err != nil {
			return err
		}
	}
	return nil
}
