package harness

import (
	"encoding/json"
	"fmt"

	"github.com/calyx-ml/graphir/internal/ir"
)

// GraphSnapshot is the deterministic JSON form of a converted graph.
// Nodes appear in construction order; tensor names are sorted.
type GraphSnapshot struct {
	Name       string         `json:"name"`
	Parameters []string       `json:"parameters"`
	Results    []string       `json:"results"`
	Sinks      []string       `json:"sinks"`
	Nodes      []NodeSnapshot `json:"nodes"`
}

// NodeSnapshot is one node of a graph snapshot.
type NodeSnapshot struct {
	ID      int64          `json:"id"`
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Opset   string         `json:"opset"`
	Inputs  []string       `json:"inputs,omitempty"` // "producer:port"
	Outputs []PortSnapshot `json:"outputs"`
	Deps    []string       `json:"deps,omitempty"` // control dependencies
}

// PortSnapshot is one output port of a node snapshot.
type PortSnapshot struct {
	Type  string   `json:"type"`
	Shape string   `json:"shape"`
	Names []string `json:"names,omitempty"`
}

// Snapshot captures a graph for golden comparison.
func Snapshot(g *ir.Graph) GraphSnapshot {
	snap := GraphSnapshot{
		Name:       g.Name,
		Parameters: nodeNames(g.Parameters),
		Results:    nodeNames(g.Results),
		Sinks:      nodeNames(g.Sinks),
	}
	for _, n := range g.Nodes {
		ns := NodeSnapshot{
			ID:    n.ID,
			Name:  n.Name,
			Type:  n.TypeName,
			Opset: n.OpsetName,
		}
		for _, in := range n.Inputs {
			if in.Node == nil {
				ns.Inputs = append(ns.Inputs, "<unbound>")
				continue
			}
			ns.Inputs = append(ns.Inputs, fmt.Sprintf("%s:%d", in.Node.Name, in.Port))
		}
		for _, port := range n.OutPorts {
			ns.Outputs = append(ns.Outputs, PortSnapshot{
				Type:  port.Type.String(),
				Shape: port.Shape.String(),
				Names: port.SortedNames(),
			})
		}
		for _, dep := range n.ControlDeps {
			ns.Deps = append(ns.Deps, dep.Name)
		}
		snap.Nodes = append(snap.Nodes, ns)
	}
	return snap
}

// MarshalSnapshot renders a snapshot as indented JSON with a trailing
// newline, the byte form stored in golden files.
func MarshalSnapshot(snap GraphSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

func nodeNames(nodes []*ir.Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}
