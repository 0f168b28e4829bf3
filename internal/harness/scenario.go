package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cipherflow/internal/ir"
)

// DefaultRunID is the journal id of a scenario run unless it names one.
const DefaultRunID = "scenario-run"

// Scenario defines a graph, how to run it and what the run must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Library is an optional directory of CUE block declarations added to
	// the standard library. Relative paths are resolved against the
	// scenario file.
	Library string `yaml:"library,omitempty"`

	// MaxPulls overrides the engine pull quota when positive.
	MaxPulls int `yaml:"max_pulls,omitempty"`

	// RunID is the id the run is journaled under.
	RunID string `yaml:"run_id,omitempty"`

	Blocks []BlockStep `yaml:"blocks"`
	Wires  []Wire      `yaml:"wires,omitempty"`

	Expect Expect `yaml:"expect"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// BlockStep places one block.
type BlockStep struct {
	// ID places the block at an explicit id; otherwise the next free id
	// is used.
	ID *int `yaml:"id,omitempty"`

	// Block is the definition identity ("Package/Name").
	Block string `yaml:"block"`

	// Literal is the value of a source or constant block.
	Literal *string `yaml:"literal,omitempty"`
}

// Endpoint is one end of a wire.
type Endpoint struct {
	Block int `yaml:"block"`
	Port  int `yaml:"port"`
}

// Wire connects an output to an input.
type Wire struct {
	From Endpoint `yaml:"from"`
	To   Endpoint `yaml:"to"`
}

// Expect describes the run outcome. Unset fields are not checked.
type Expect struct {
	// Success defaults to true unless Error is set.
	Success *bool `yaml:"success,omitempty"`

	// Sink is the value Bob must receive.
	Sink any `yaml:"sink,omitempty"`

	// Error is the engine error code the run must fail with.
	Error string `yaml:"error,omitempty"`

	Pulls    *int `yaml:"pulls,omitempty"`
	Warnings *int `yaml:"warnings,omitempty"`

	// Verify lists texts that must each appear in some Verify problem.
	Verify []string `yaml:"verify,omitempty"`

	// VerifyClean requires Verify to report nothing.
	VerifyClean bool `yaml:"verify_clean,omitempty"`
}

// Assertion validates the trace, the diagnostics or the journal.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Block was pulled, with Outputs if given
	// - "trace_order": first pulls of Blocks happen in order
	// - "trace_count": Block was pulled exactly Count times
	// - "diagnostic": some diagnostic contains Contains
	// - "journal": the journaled run matches Success, Pulls and Steps
	Type string `yaml:"type"`

	Block   string   `yaml:"block,omitempty"`
	Outputs []any    `yaml:"outputs,omitempty"`
	Blocks  []string `yaml:"blocks,omitempty"`
	Count   int      `yaml:"count,omitempty"`

	Contains string `yaml:"contains,omitempty"`

	Success *bool `yaml:"success,omitempty"`
	Pulls   *int  `yaml:"pulls,omitempty"`
	Steps   *int  `yaml:"steps,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertDiagnostic    = "diagnostic"
	AssertJournal       = "journal"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative library path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Library != "" && !filepath.IsAbs(scenario.Library) {
		scenario.Library = filepath.Join(filepath.Dir(path), scenario.Library)
	}
	if err := checkLibrary(scenario.Library); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func checkLibrary(dir string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("library directory not found: %s", dir)
	}
	return nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Blocks) == 0 {
		return fmt.Errorf("blocks list is required and must be non-empty")
	}
	if s.MaxPulls < 0 {
		return fmt.Errorf("max_pulls must be non-negative")
	}

	for i, b := range s.Blocks {
		if b.Block == "" {
			return fmt.Errorf("blocks[%d]: block is required", i)
		}
		if b.ID != nil && *b.ID < 0 {
			return fmt.Errorf("blocks[%d]: id must be non-negative", i)
		}
	}
	for i, w := range s.Wires {
		if w.From.Block < 0 || w.From.Port < 0 || w.To.Block < 0 || w.To.Port < 0 {
			return fmt.Errorf("wires[%d]: endpoints must be non-negative", i)
		}
	}

	if s.Expect.Sink != nil {
		if _, err := ir.FromAny(s.Expect.Sink); err != nil {
			return fmt.Errorf("expect.sink: %w", err)
		}
	}
	if s.Expect.Success != nil && *s.Expect.Success && s.Expect.Error != "" {
		return fmt.Errorf("expect: success and error are exclusive")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Block == "" {
			return fmt.Errorf("assertions[%d]: block is required for trace_contains", index)
		}
		for j, v := range a.Outputs {
			if _, err := ir.FromAny(v); err != nil {
				return fmt.Errorf("assertions[%d].outputs[%d]: %w", index, j, err)
			}
		}
	case AssertTraceOrder:
		if len(a.Blocks) == 0 {
			return fmt.Errorf("assertions[%d]: blocks list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Block == "" {
			return fmt.Errorf("assertions[%d]: block is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertDiagnostic:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for diagnostic", index)
		}
	case AssertJournal:
		if a.Success == nil && a.Pulls == nil && a.Steps == nil {
			return fmt.Errorf("assertions[%d]: journal needs success, pulls or steps", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
