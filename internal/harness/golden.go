package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/calyx-ml/graphir/internal/ir"
)

// AssertGolden snapshots a graph and compares it against the golden
// file testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, g *ir.Graph) error {
	t.Helper()

	data, err := MarshalSnapshot(Snapshot(g))
	if err != nil {
		return err
	}

	gold := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	gold.Assert(t, name, data)
	return nil
}

// RunWithGolden executes a scenario and, when it converts successfully,
// compares the graph snapshot against the golden file named after the
// scenario. Scenario expectation failures surface through t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}
	if result.Graph == nil {
		return nil
	}
	return AssertGolden(t, scenario.Name, result.Graph)
}
