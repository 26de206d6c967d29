package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/engine"
)

// Scenario is a scripted prompt session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed fixes every stochastic draw of the session.
	Seed uint64 `yaml:"seed"`

	// Params apply to every step that does not override them.
	// Nil uses engine.DefaultParams.
	Params *engine.Params `yaml:"params,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`

	// SessionID is an optional fixed session id. Defaults to "scenario-<name>".
	SessionID string `yaml:"session_id,omitempty"`
}

// Step processes one prompt.
type Step struct {
	Prompt string         `yaml:"prompt"`
	Params *engine.Params `yaml:"params,omitempty"`
	Expect *Expect        `yaml:"expect,omitempty"`
}

// Expect checks a single step. Nil fields are not checked.
type Expect struct {
	Passed       *bool    `yaml:"passed,omitempty"`
	MinCoherence *float64 `yaml:"min_coherence,omitempty"`
	MaxCoherence *float64 `yaml:"max_coherence,omitempty"`
	TokenCount   *int     `yaml:"token_count,omitempty"`
}

// Assertion checks the session after the last step.
type Assertion struct {
	Type  string  `yaml:"type"`
	Value float64 `yaml:"value,omitempty"`
	Count int     `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertBounded         = "bounded"
	AssertHistoryLength   = "history_length"
	AssertThresholdAtMost = "threshold_at_most"
	AssertPassedCount     = "passed_count"
	AssertRunsRecorded    = "runs_recorded"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Params != nil {
		if err := s.Params.Validate(); err != nil {
			return fmt.Errorf("params: %w", err)
		}
	}

	for i, step := range s.Steps {
		if step.Params != nil {
			if err := step.Params.Validate(); err != nil {
				return fmt.Errorf("steps[%d].params: %w", i, err)
			}
		}
		if e := step.Expect; e != nil && e.MinCoherence != nil && e.MaxCoherence != nil &&
			*e.MinCoherence > *e.MaxCoherence {
			return fmt.Errorf("steps[%d].expect: min_coherence exceeds max_coherence", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertBounded:
	case AssertHistoryLength, AssertPassedCount, AssertRunsRecorded:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertThresholdAtMost:
		if a.Value <= 0 || a.Value > 1 {
			return fmt.Errorf("assertions[%d]: value must be in (0, 1] for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
