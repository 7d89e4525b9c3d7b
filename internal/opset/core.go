package opset

import (
	"fmt"

	"github.com/calyx-ml/graphir/internal/ir"
)

// Parameter is a graph input boundary node.
type Parameter struct {
	Shape ir.PartialShape
	Type  ir.ElementType
}

// NewParameter returns a blank Parameter with a fully dynamic signature.
func NewParameter() *Parameter {
	return &Parameter{Shape: ir.DynamicShape(), Type: ir.Dynamic}
}

func (*Parameter) TypeName() string { return "Parameter" }

func (p *Parameter) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "shape", Slot: &p.Shape},
		{Name: "element_type", Slot: &p.Type},
	}
}

func (p *Parameter) Infer(n *ir.Node) error {
	n.OutPorts = []ir.Port{{Type: p.Type, Shape: p.Shape.Clone()}}
	return nil
}

func (p *Parameter) Clone() ir.Operation {
	c := *p
	c.Shape = p.Shape.Clone()
	return &c
}

// Result is a graph output boundary node. It mirrors its single input.
type Result struct{}

// NewResult returns a blank Result.
func NewResult() *Result { return &Result{} }

func (*Result) TypeName() string { return "Result" }

func (*Result) AttrFields() []ir.AttrField { return nil }

func (r *Result) Infer(n *ir.Node) error {
	if len(n.Inputs) != 1 {
		return fmt.Errorf("Result expects exactly one input, got %d", len(n.Inputs))
	}
	in := n.Inputs[0].PortInfo()
	n.OutPorts = []ir.Port{{Type: in.Type, Shape: in.Shape.Clone()}}
	return nil
}

func (r *Result) Clone() ir.Operation {
	c := *r
	return &c
}

// Constant carries externally stored or inline constant data.
type Constant struct {
	Type  ir.ElementType
	Shape ir.PartialShape
	Value ir.Blob
}

// NewConstant returns a blank Constant.
func NewConstant() *Constant {
	return &Constant{Type: ir.Dynamic, Shape: ir.DynamicShape()}
}

func (*Constant) TypeName() string { return "Constant" }

func (c *Constant) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "element_type", Slot: &c.Type},
		{Name: "shape", Slot: &c.Shape},
		{Name: "value", Slot: &c.Value},
	}
}

func (c *Constant) Infer(n *ir.Node) error {
	n.OutPorts = []ir.Port{{Type: c.Type, Shape: c.Shape.Clone()}}
	return nil
}

func (c *Constant) Clone() ir.Operation {
	cl := *c
	cl.Shape = c.Shape.Clone()
	return &cl
}

// IsParameter reports whether the operation is a graph input.
func IsParameter(op ir.Operation) bool {
	_, ok := op.(*Parameter)
	return ok
}

// IsResult reports whether the operation is a graph output.
func IsResult(op ir.Operation) bool {
	_, ok := op.(*Result)
	return ok
}

// IsSink reports whether the operation is a side-effecting terminal
// node kept alive without a consumer.
func IsSink(op ir.Operation) bool {
	_, ok := op.(*Assign)
	return ok
}
