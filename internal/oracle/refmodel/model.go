// Package refmodel is a small stochastic target-search model that implements
// oracle.Workspace. Drones sweep an area in which batches of targets appear
// one time slot after another; the parameters drive how fast targets are
// found.
package refmodel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of target batches, one per time slot.
type Scenario struct {
	SlotTicks int   `yaml:"slot_ticks"`
	Batches   []int `yaml:"batches"`
}

// Model is the set of scenarios a workspace can load.
type Model struct {
	Scenarios map[string]Scenario `yaml:"scenarios"`
}

// DefaultModel returns the built-in scenarios.
func DefaultModel() *Model {
	return &Model{Scenarios: map[string]Scenario{
		"default": {SlotTicks: 40, Batches: []int{3, 5, 2, 4, 6}},
		"sparse":  {SlotTicks: 80, Batches: []int{1, 2, 1, 3}},
	}}
}

// LoadModel reads a YAML model file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return ParseModel(data)
}

// ParseModel parses a YAML model.
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model YAML: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every scenario.
func (m *Model) Validate() error {
	if len(m.Scenarios) == 0 {
		return fmt.Errorf("model defines no scenarios")
	}
	for name, sc := range m.Scenarios {
		if sc.SlotTicks < 1 {
			return fmt.Errorf("scenario %s: slot_ticks must be positive", name)
		}
		if len(sc.Batches) == 0 {
			return fmt.Errorf("scenario %s: at least one batch is required", name)
		}
		for i, b := range sc.Batches {
			if b < 1 {
				return fmt.Errorf("scenario %s: batch %d must hold at least one target", name, i)
			}
		}
	}
	return nil
}
