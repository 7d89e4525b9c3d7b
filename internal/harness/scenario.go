package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/calyx-ml/graphir/internal/convert"
	"github.com/calyx-ml/graphir/internal/document"
	"github.com/calyx-ml/graphir/internal/ir"
)

// Scenario defines one conversion conformance case: a fixture document,
// conversion options, and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the path to the fixture IR document, relative to the
	// scenario file location unless absolute.
	Model string `yaml:"model"`

	// Weights is an optional path to the fixture weight store.
	Weights string `yaml:"weights,omitempty"`

	// Fallback enables placeholder substitution for unresolvable
	// operations.
	Fallback bool `yaml:"fallback,omitempty"`

	// Expect declares the outcome to validate.
	Expect ExpectClause `yaml:"expect"`
}

// ExpectClause specifies the expected conversion outcome. Error and the
// graph fields are mutually exclusive: a scenario either fails with a
// code or converts into a graph with the declared boundary.
type ExpectClause struct {
	// Error is the expected failure code (e.g. "MALFORMED_IR").
	// Empty means the conversion must succeed.
	Error string `yaml:"error,omitempty"`

	// Nodes is the expected total node count. Zero means unchecked.
	Nodes int `yaml:"nodes,omitempty"`

	// Parameters are the expected parameter names in declaration order.
	// Nil means unchecked.
	Parameters []string `yaml:"parameters,omitempty"`

	// Results are the expected result names in declaration order.
	// Nil means unchecked.
	Results []string `yaml:"results,omitempty"`

	// Sinks is the expected sink count. Only checked when Nodes is
	// also declared, so zero-valued YAML stays unambiguous.
	Sinks int `yaml:"sinks,omitempty"`
}

// Result holds the outcome of executing a scenario.
type Result struct {
	Pass   bool
	Errors []string
	Graph  *ir.Graph // nil when the conversion failed
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected to catch typos. The model and weight paths are resolved
// relative to the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) {
		scenario.Model = filepath.Join(base, scenario.Model)
	}
	if scenario.Weights != "" && !filepath.IsAbs(scenario.Weights) {
		scenario.Weights = filepath.Join(base, scenario.Weights)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if _, err := os.Stat(s.Model); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.Model)
	}
	if s.Weights != "" {
		if _, err := os.Stat(s.Weights); os.IsNotExist(err) {
			return fmt.Errorf("weights file not found: %s", s.Weights)
		}
	}
	return nil
}

// Run executes a scenario: parse, convert, check expectations. The
// returned error covers harness-level failures (unreadable fixtures);
// expectation mismatches land in Result.Errors.
func Run(s *Scenario) (*Result, error) {
	data, err := os.ReadFile(s.Model)
	if err != nil {
		return nil, fmt.Errorf("reading model fixture: %w", err)
	}

	var weights *ir.Weights
	if s.Weights != "" {
		raw, err := os.ReadFile(s.Weights)
		if err != nil {
			return nil, fmt.Errorf("reading weights fixture: %w", err)
		}
		weights = ir.NewWeights(raw)
	}

	result := &Result{}
	fail := func(format string, args ...any) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	doc, err := document.Parse(data)
	if err != nil {
		if s.Expect.Error == string(convert.ErrCodeMalformedIR) {
			result.Pass = true
			return result, nil
		}
		fail("document failed to parse: %v", err)
		return result, nil
	}

	g, err := convert.Convert(doc, weights, convert.Options{FallbackUnknownOps: s.Fallback})

	if s.Expect.Error != "" {
		if err == nil {
			fail("expected failure %s but conversion succeeded", s.Expect.Error)
			return result, nil
		}
		code, ok := convert.CodeOf(err)
		if !ok {
			fail("expected failure %s but got uncoded error: %v", s.Expect.Error, err)
			return result, nil
		}
		if string(code) != s.Expect.Error {
			fail("expected failure %s but got %s: %v", s.Expect.Error, code, err)
			return result, nil
		}
		result.Pass = true
		return result, nil
	}

	if err != nil {
		fail("conversion failed: %v", err)
		return result, nil
	}
	result.Graph = g

	if s.Expect.Nodes != 0 && len(g.Nodes) != s.Expect.Nodes {
		fail("expected %d nodes, got %d", s.Expect.Nodes, len(g.Nodes))
	}
	if s.Expect.Parameters != nil {
		checkNames(fail, "parameters", s.Expect.Parameters, g.Parameters)
	}
	if s.Expect.Results != nil {
		checkNames(fail, "results", s.Expect.Results, g.Results)
	}
	if s.Expect.Nodes != 0 && len(g.Sinks) != s.Expect.Sinks {
		fail("expected %d sinks, got %d", s.Expect.Sinks, len(g.Sinks))
	}

	result.Pass = len(result.Errors) == 0
	return result, nil
}

func checkNames(fail func(string, ...any), kind string, want []string, got []*ir.Node) {
	if len(want) != len(got) {
		fail("expected %d %s, got %d", len(want), kind, len(got))
		return
	}
	for i := range want {
		if got[i].Name != want[i] {
			fail("%s[%d]: expected %q, got %q", kind, i, want[i], got[i].Name)
		}
	}
}
