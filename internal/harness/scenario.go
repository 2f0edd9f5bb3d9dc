package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wodkit/internal/program"
)

// Scenario defines a conformance test scenario: a program definition plus a
// timed command script driven against a manual clock.
type Scenario struct {
	// Name uniquely identifies this scenario. Doubles as the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Program is the inline program document, in the engine's wire shape
	// (nodes with discriminated fragments, plus the root group).
	Program map[string]interface{} `yaml:"program"`

	// Script is the timed command sequence. Steps run in order against a
	// manual clock starting at the canonical epoch.
	Script []Step `yaml:"script"`

	// Assertions validate the captured records and final stack state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scripted input: advance the clock, then issue a command.
// Either part may be omitted; Repeat replays the step N times.
type Step struct {
	// Advance moves the clock forward before the command (e.g. "1s").
	Advance string `yaml:"advance,omitempty"`

	// Command is the engine input: start, tick, next, pause, resume, stop.
	Command string `yaml:"command,omitempty"`

	// Repeat replays the whole step this many times (default 1).
	Repeat int `yaml:"repeat,omitempty"`
}

// Assertion validates captured records or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record_contains": a record with the given fields was emitted
	// - "record_count": exactly Count records of Kind were emitted
	// - "completion_order": completions carry these labels in this order
	// - "stack_empty": the run left no blocks on the stack
	Type string `yaml:"type"`

	// Kind filters by record kind (record_contains, record_count).
	Kind string `yaml:"kind,omitempty"`

	// Label filters by block label (record_contains).
	Label string `yaml:"label,omitempty"`

	// Reason is the expected completion reason (record_contains).
	Reason string `yaml:"reason,omitempty"`

	// Round is the expected round annotation (record_contains).
	Round int `yaml:"round,omitempty"`

	// Count is the expected number of matches (record_count).
	Count int `yaml:"count,omitempty"`

	// Labels is the expected completion label order (completion_order).
	Labels []string `yaml:"labels,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordContains  = "record_contains"
	AssertRecordCount     = "record_count"
	AssertCompletionOrder = "completion_order"
	AssertStackEmpty      = "stack_empty"
)

// Commands a script step may issue.
var validCommands = map[string]bool{
	"start":  true,
	"tick":   true,
	"next":   true,
	"pause":  true,
	"resume": true,
	"stop":   true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
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

// validateScenario checks required fields and closed-set values.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Program) == 0 {
		return fmt.Errorf("program is required")
	}
	if len(s.Script) == 0 {
		return fmt.Errorf("script is required")
	}

	for i, step := range s.Script {
		if step.Advance == "" && step.Command == "" {
			return fmt.Errorf("script step %d is empty", i)
		}
		if step.Advance != "" {
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("script step %d: bad advance %q: %w", i, step.Advance, err)
			}
		}
		if step.Command != "" && !validCommands[step.Command] {
			return fmt.Errorf("script step %d: unknown command %q", i, step.Command)
		}
		if step.Repeat < 0 {
			return fmt.Errorf("script step %d: negative repeat", i)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertRecordContains, AssertRecordCount, AssertCompletionOrder, AssertStackEmpty:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}

// buildProgram converts the scenario's inline document into an indexed
// program, routing through the JSON wire codec so fragments decode with
// the same validation the CLI loader applies.
func (s *Scenario) buildProgram() (*program.Program, error) {
	doc, err := json.Marshal(s.Program)
	if err != nil {
		return nil, fmt.Errorf("encode scenario program: %w", err)
	}
	return program.Decode(doc)
}
