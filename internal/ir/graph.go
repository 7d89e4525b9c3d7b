package ir

import (
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Variable is the shared descriptor of one piece of persistent state.
// The first reader or writer that mentions an id creates the descriptor;
// every later reference within the same conversion shares it.
type Variable struct {
	ID    string
	Shape PartialShape
	Type  ElementType
}

// Port describes one output slot of a constructed node.
type Port struct {
	Type  ElementType
	Shape PartialShape
	Names map[string]struct{}
}

// AddName records a tensor name on the port, NFC-normalized so that
// graph-level name lookups are byte-comparable.
func (p *Port) AddName(name string) {
	if p.Names == nil {
		p.Names = make(map[string]struct{})
	}
	p.Names[norm.NFC.String(name)] = struct{}{}
}

// SortedNames returns the port's names in lexical order.
func (p *Port) SortedNames() []string {
	names := make([]string, 0, len(p.Names))
	for n := range p.Names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Output is a reference to one specific output slot of a producer node.
// One output may feed many consumers.
type Output struct {
	Node *Node
	Port int
}

// PortInfo resolves the referenced port descriptor.
func (o Output) PortInfo() *Port {
	return &o.Node.OutPorts[o.Port]
}

// Node is one constructed operation. It owns its resolved input
// connections, its attribute-derived Op payload and its inferred output
// ports. Nodes are created once during assembly and never mutated
// afterwards, except for RTInfo which carries non-semantic run-time
// annotations.
type Node struct {
	ID        int64
	Name      string
	TypeName  string
	OpsetName string

	Inputs   []Output
	OutPorts []Port
	Op       Operation

	// ControlDeps orders this node after the listed nodes without a
	// dataflow edge between them.
	ControlDeps []*Node

	RTInfo map[string]string
}

// Output returns a reference to the node's i-th output slot.
func (n *Node) Output(i int) Output {
	return Output{Node: n, Port: i}
}

// AddControlDependency records an ordering edge onto dep.
func (n *Node) AddControlDependency(dep *Node) {
	n.ControlDeps = append(n.ControlDeps, dep)
}

// SetRTInfo attaches a non-semantic annotation.
func (n *Node) SetRTInfo(key, value string) {
	if n.RTInfo == nil {
		n.RTInfo = make(map[string]string)
	}
	n.RTInfo[key] = value
}

func (n *Node) String() string {
	return fmt.Sprintf("%s[%d] %q", n.TypeName, n.ID, n.Name)
}

// Graph is one assembled function: the complete node set plus the three
// distinguished boundary subsets.
type Graph struct {
	Name string

	// Parameters are the graph inputs, in construction order.
	Parameters []*Node
	// Results are the graph outputs, in construction order.
	Results []*Node
	// Sinks are stateful or side-effecting terminal nodes.
	Sinks []*Node

	// Nodes is the full constructed node set, in construction order.
	Nodes []*Node
}

// Validate checks the boundary invariants: every parameter and result
// must appear in the full node set, and no node may be both a parameter
// and a result.
func (g *Graph) Validate() error {
	all := make(map[*Node]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		all[n] = struct{}{}
	}
	params := make(map[*Node]struct{}, len(g.Parameters))
	for _, p := range g.Parameters {
		if _, ok := all[p]; !ok {
			return fmt.Errorf("graph %q: parameter %s missing from node set", g.Name, p)
		}
		params[p] = struct{}{}
	}
	for _, r := range g.Results {
		if _, ok := all[r]; !ok {
			return fmt.Errorf("graph %q: result %s missing from node set", g.Name, r)
		}
		if _, ok := params[r]; ok {
			return fmt.Errorf("graph %q: node %s is both a parameter and a result", g.Name, r)
		}
	}
	return nil
}
