package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/filterjoin/internal/compiler"
	"github.com/roach88/filterjoin/internal/doc"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Mode is graph, sequence or all. Defaults to all.
	Mode string `yaml:"mode,omitempty"`

	// DuplicateEdges is the graph duplicate edge policy. Defaults to first.
	DuplicateEdges string `yaml:"duplicate_edges,omitempty"`

	// Input is the query document, inline.
	Input any `yaml:"input,omitempty"`

	// InputFile is a JSON or YAML file holding the query document.
	InputFile string `yaml:"input_file,omitempty"`

	// Assertions are checked against the compile result.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one property of a compile result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Expect is the expected document (output_equals, output_at).
	Expect any `yaml:"expect,omitempty"`

	// Path addresses a value in the output (output_at). Strings are object
	// keys and integers are array indexes.
	Path []any `yaml:"path,omitempty"`

	// Code is the expected error code (error_code).
	Code string `yaml:"code,omitempty"`

	// Kind is the expected error kind (error_kind).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of joins (join_count).
	Count int `yaml:"count,omitempty"`

	// Marker is the key that must not remain (no_marker).
	Marker string `yaml:"marker,omitempty"`
}

// Assertion type constants.
const (
	AssertCompiles     = "compiles"
	AssertOutputEquals = "output_equals"
	AssertOutputAt     = "output_at"
	AssertErrorCode    = "error_code"
	AssertErrorKind    = "error_kind"
	AssertJoinCount    = "join_count"
	AssertNoMarker     = "no_marker"
)

// expectsError reports whether the assertion describes a failed compile.
func (a Assertion) expectsError() bool {
	return a.Type == AssertErrorCode || a.Type == AssertErrorKind
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.InputFile != "" && !filepath.IsAbs(scenario.InputFile) {
		scenario.InputFile = filepath.Join(filepath.Dir(path), scenario.InputFile)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Relative input_file paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Input == nil && s.InputFile == "" {
		return errors.New("one of input or input_file is required")
	}
	if s.Input != nil && s.InputFile != "" {
		return errors.New("input and input_file are mutually exclusive")
	}
	if _, err := compiler.ParseMode(s.Mode); err != nil {
		return err
	}
	if _, err := compiler.ParseDuplicateEdgePolicy(s.DuplicateEdges); err != nil {
		return err
	}
	if len(s.Assertions) == 0 {
		return errors.New("at least one assertion is required")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertCompiles:
	case AssertOutputEquals:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for output_equals", index)
		}
	case AssertOutputAt:
		if len(a.Path) == 0 {
			return fmt.Errorf("assertions[%d]: path is required for output_at", index)
		}
		if _, err := toPath(a.Path); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	case AssertErrorKind:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for error_kind", index)
		}
	case AssertJoinCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for join_count", index)
		}
	case AssertNoMarker:
		if a.Marker == "" {
			return fmt.Errorf("assertions[%d]: marker is required for no_marker", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// toPath converts a YAML path list to a document path.
func toPath(steps []any) (doc.Path, error) {
	path := make(doc.Path, 0, len(steps))
	for i, step := range steps {
		switch s := step.(type) {
		case string:
			path = append(path, doc.Key(s))
		case int:
			path = append(path, doc.Index(s))
		default:
			return nil, fmt.Errorf("path[%d]: must be a string or an integer, got %T", i, step)
		}
	}
	return path, nil
}

// loadInput returns the scenario's input document.
func (s *Scenario) loadInput() (doc.Value, error) {
	if s.InputFile == "" {
		return doc.FromAny(s.Input)
	}

	data, err := os.ReadFile(s.InputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	if filepath.Ext(s.InputFile) == ".json" {
		return doc.Parse(data)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse input file: %w", err)
	}
	return doc.FromAny(raw)
}
