// Package scenario loads declarative YAML descriptions of a simulation
// graph and assembles them into a ready-to-run Simulation: model kinds
// with their parameter packs, connections, observer attachments and the
// external-source registry contents.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec is the top-level scenario file.
type Spec struct {
	Name       string           `yaml:"name"`
	Until      float64          `yaml:"until"`
	Seed       uint64           `yaml:"seed"`
	Capacities CapacitySpec     `yaml:"capacities"`
	Sources    []SourceSpec     `yaml:"sources,omitempty"`
	Models     []ModelSpec      `yaml:"models"`
	Connects   []ConnectionSpec `yaml:"connections,omitempty"`
	Observers  []string         `yaml:"observers,omitempty"`
}

// CapacitySpec sizes the engine arenas. Zero values fall back to
// defaults large enough for small graphs.
type CapacitySpec struct {
	Models   int `yaml:"models"`
	Messages int `yaml:"messages"`
}

// SourceSpec declares one external-source registry entry.
type SourceSpec struct {
	Name         string             `yaml:"name"`
	Kind         string             `yaml:"kind"`
	Value        float64            `yaml:"value,omitempty"`
	Path         string             `yaml:"path,omitempty"`
	Distribution string             `yaml:"distribution,omitempty"`
	Params       map[string]float64 `yaml:"params,omitempty"`
}

// ModelSpec declares one atomic model: kind, scalar parameters, table
// parameters and source bindings by registry-entry name.
type ModelSpec struct {
	Name    string             `yaml:"name"`
	Kind    string             `yaml:"kind"`
	Params  map[string]float64 `yaml:"params,omitempty"`
	F       string             `yaml:"f,omitempty"`
	Data    []float64          `yaml:"data,omitempty"`
	Sigmas  []float64          `yaml:"sigmas,omitempty"`
	Sources map[string]string  `yaml:"sources,omitempty"`
}

// ConnectionSpec wires an output port to an input port by model name.
type ConnectionSpec struct {
	From string `yaml:"from"`
	Port int    `yaml:"port"`
	To   string `yaml:"to"`
	In   int    `yaml:"in"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes and validates scenario YAML.
func Parse(raw []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *Spec) validate() error {
	if len(s.Models) == 0 {
		return fmt.Errorf("scenario: no models declared")
	}

	names := make(map[string]bool, len(s.Models))
	for _, m := range s.Models {
		if m.Name == "" {
			return fmt.Errorf("scenario: model with empty name")
		}
		if names[m.Name] {
			return fmt.Errorf("scenario: duplicate model name %q", m.Name)
		}
		names[m.Name] = true
	}

	srcNames := make(map[string]bool, len(s.Sources))
	for _, src := range s.Sources {
		if src.Name == "" {
			return fmt.Errorf("scenario: source with empty name")
		}
		if srcNames[src.Name] {
			return fmt.Errorf("scenario: duplicate source name %q", src.Name)
		}
		srcNames[src.Name] = true
	}

	for _, c := range s.Connects {
		if !names[c.From] {
			return fmt.Errorf("scenario: connection from unknown model %q", c.From)
		}
		if !names[c.To] {
			return fmt.Errorf("scenario: connection to unknown model %q", c.To)
		}
	}

	for _, o := range s.Observers {
		if !names[o] {
			return fmt.Errorf("scenario: observer on unknown model %q", o)
		}
	}

	for _, m := range s.Models {
		for role, src := range m.Sources {
			if !srcNames[src] {
				return fmt.Errorf("scenario: model %q binds unknown source %q as %s",
					m.Name, src, role)
			}
		}
	}

	return nil
}
