// Package harness provides conformance testing for the converter.
//
// The harness converts fixture IR documents, snapshots the resulting
// graphs as deterministic JSON, and validates expectations declared in
// YAML scenario files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	model: path/to/model.xml
//	weights: path/to/model.bin   # optional
//	fallback: true               # optional, default false
//	expect:
//	  error: MALFORMED_IR        # expected failure code, or omit
//	  nodes: 5
//	  parameters: [input_a, input_b]
//	  results: [output]
//	  sinks: 0
//
// A scenario either expects a coded failure (error set, graph fields
// ignored) or a successful conversion whose boundary matches the
// declared names and counts. Only the fields a scenario declares are
// checked.
//
// # Deterministic Snapshots
//
// Snapshot captures a graph in construction order with sorted tensor
// names, so identical documents produce byte-identical JSON across
// runs. Golden files live in testdata/golden and are regenerated with:
//
//	go test ./internal/harness -update
package harness
