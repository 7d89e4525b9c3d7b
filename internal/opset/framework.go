package opset

import (
	"github.com/calyx-ml/graphir/internal/ir"
)

// FrameworkAttrs is the generic key/value bag captured for operations
// the registry cannot resolve. TypeName and OpsetName record what the
// document declared; Attrs holds the data section verbatim.
type FrameworkAttrs struct {
	TypeName  string
	OpsetName string
	Attrs     map[string]string
}

func (f *FrameworkAttrs) clone() FrameworkAttrs {
	c := FrameworkAttrs{TypeName: f.TypeName, OpsetName: f.OpsetName}
	if f.Attrs != nil {
		c.Attrs = make(map[string]string, len(f.Attrs))
		for k, v := range f.Attrs {
			c.Attrs[k] = v
		}
	}
	return c
}

// FrameworkNode is the opaque placeholder for an unresolvable
// operation. It preserves structure without semantics: inputs attach
// positionally, attributes land in the generic bag, and the declared
// output ports are applied verbatim by the builder with no inference.
type FrameworkNode struct {
	Attrs FrameworkAttrs
}

// NewFrameworkNode returns an empty placeholder.
func NewFrameworkNode() *FrameworkNode { return &FrameworkNode{} }

func (*FrameworkNode) TypeName() string { return "FrameworkNode" }

func (f *FrameworkNode) AttrFields() []ir.AttrField {
	return []ir.AttrField{{Name: "framework_node_attrs", Slot: &f.Attrs}}
}

// Infer is a no-op: the builder applies the declared ports verbatim.
func (f *FrameworkNode) Infer(n *ir.Node) error { return nil }

func (f *FrameworkNode) Clone() ir.Operation {
	return &FrameworkNode{Attrs: f.Attrs.clone()}
}

// CustomOp is an extension-declared operation: it carries a generic
// attribute bag like a framework node but lives in a named extension
// snapshot with a declared output arity.
type CustomOp struct {
	Type        string
	OutputCount int
	Attrs       FrameworkAttrs
}

// NewCustomOp returns an extension operation of the given type with
// outputs fully dynamic ports.
func NewCustomOp(typeName string, outputs int) *CustomOp {
	return &CustomOp{Type: typeName, OutputCount: outputs}
}

func (c *CustomOp) TypeName() string { return c.Type }

func (c *CustomOp) AttrFields() []ir.AttrField {
	return []ir.AttrField{{Name: "custom_op_attrs", Slot: &c.Attrs}}
}

func (c *CustomOp) Infer(n *ir.Node) error {
	ports := make([]ir.Port, c.OutputCount)
	for i := range ports {
		ports[i] = ir.Port{Type: ir.Dynamic, Shape: ir.DynamicShape()}
	}
	n.OutPorts = ports
	return nil
}

func (c *CustomOp) Clone() ir.Operation {
	return &CustomOp{Type: c.Type, OutputCount: c.OutputCount, Attrs: c.Attrs.clone()}
}
