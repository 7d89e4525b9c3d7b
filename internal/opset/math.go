package opset

import (
	"fmt"

	"github.com/calyx-ml/graphir/internal/ir"
)

// broadcastShapes merges two shapes under numpy-style broadcasting.
// Unknown extents stay unknown; a static mismatch is an error.
func broadcastShapes(a, b ir.PartialShape) (ir.PartialShape, error) {
	if a == nil || b == nil {
		return ir.DynamicShape(), nil
	}
	rank := len(a)
	if len(b) > rank {
		rank = len(b)
	}
	out := make(ir.PartialShape, rank)
	for i := 0; i < rank; i++ {
		da, db := ir.Dimension(1), ir.Dimension(1)
		if i >= rank-len(a) {
			da = a[len(a)-rank+i]
		}
		if i >= rank-len(b) {
			db = b[len(b)-rank+i]
		}
		switch {
		case da == db:
			out[i] = da
		case da == 1:
			out[i] = db
		case db == 1:
			out[i] = da
		case da.IsDynamic() || db.IsDynamic():
			out[i] = ir.DynamicDimension
		default:
			return nil, fmt.Errorf("shapes %s and %s are not broadcastable", a, b)
		}
	}
	return out, nil
}

func inputPort(n *ir.Node, i int) (*ir.Port, error) {
	if i >= len(n.Inputs) {
		return nil, fmt.Errorf("%s expects at least %d inputs, got %d", n.TypeName, i+1, len(n.Inputs))
	}
	return n.Inputs[i].PortInfo(), nil
}

type binaryEltwise struct {
	typeName      string
	AutoBroadcast string
}

func (b *binaryEltwise) TypeName() string { return b.typeName }

func (b *binaryEltwise) AttrFields() []ir.AttrField {
	return []ir.AttrField{{Name: "auto_broadcast", Slot: &b.AutoBroadcast}}
}

func (b *binaryEltwise) Infer(n *ir.Node) error {
	a, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	c, err := inputPort(n, 1)
	if err != nil {
		return err
	}
	shape, err := broadcastShapes(a.Shape, c.Shape)
	if err != nil {
		return fmt.Errorf("%s: %w", b.typeName, err)
	}
	n.OutPorts = []ir.Port{{Type: a.Type, Shape: shape}}
	return nil
}

func (b *binaryEltwise) Clone() ir.Operation {
	c := *b
	return &c
}

// Add is element-wise addition with numpy broadcasting.
type Add struct{ binaryEltwise }

// NewAdd returns a blank Add.
func NewAdd() *Add {
	return &Add{binaryEltwise{typeName: "Add", AutoBroadcast: "numpy"}}
}

func (a *Add) Clone() ir.Operation {
	c := *a
	return &c
}

// Multiply is element-wise multiplication with numpy broadcasting.
type Multiply struct{ binaryEltwise }

// NewMultiply returns a blank Multiply.
func NewMultiply() *Multiply {
	return &Multiply{binaryEltwise{typeName: "Multiply", AutoBroadcast: "numpy"}}
}

func (m *Multiply) Clone() ir.Operation {
	c := *m
	return &c
}

type unaryEltwise struct {
	typeName string
}

func (u *unaryEltwise) TypeName() string { return u.typeName }
func (u *unaryEltwise) AttrFields() []ir.AttrField { return nil }

func (u *unaryEltwise) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	n.OutPorts = []ir.Port{{Type: in.Type, Shape: in.Shape.Clone()}}
	return nil
}

func (u *unaryEltwise) Clone() ir.Operation {
	c := *u
	return &c
}

// Relu is the rectified linear activation.
type Relu struct{ unaryEltwise }

// NewRelu returns a blank Relu.
func NewRelu() *Relu { return &Relu{unaryEltwise{typeName: "Relu"}} }

func (r *Relu) Clone() ir.Operation {
	c := *r
	return &c
}

// Sigmoid is the logistic activation.
type Sigmoid struct{ unaryEltwise }

// NewSigmoid returns a blank Sigmoid.
func NewSigmoid() *Sigmoid { return &Sigmoid{unaryEltwise{typeName: "Sigmoid"}} }

func (s *Sigmoid) Clone() ir.Operation {
	c := *s
	return &c
}

// Softmax normalizes along Axis.
type Softmax struct {
	Axis int64
}

// NewSoftmax returns a Softmax over axis 1.
func NewSoftmax() *Softmax { return &Softmax{Axis: 1} }

func (*Softmax) TypeName() string { return "Softmax" }

func (s *Softmax) AttrFields() []ir.AttrField {
	return []ir.AttrField{{Name: "axis", Slot: &s.Axis}}
}

func (s *Softmax) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	if in.Shape != nil {
		axis := s.Axis
		if axis < 0 {
			axis += int64(len(in.Shape))
		}
		if axis < 0 || axis >= int64(len(in.Shape)) {
			return fmt.Errorf("Softmax axis %d out of range for shape %s", s.Axis, in.Shape)
		}
	}
	n.OutPorts = []ir.Port{{Type: in.Type, Shape: in.Shape.Clone()}}
	return nil
}

func (s *Softmax) Clone() ir.Operation {
	c := *s
	return &c
}

// Concat joins its inputs along Axis.
type Concat struct {
	Axis int64
}

// NewConcat returns a blank Concat.
func NewConcat() *Concat { return &Concat{} }

func (*Concat) TypeName() string { return "Concat" }

func (c *Concat) AttrFields() []ir.AttrField {
	return []ir.AttrField{{Name: "axis", Slot: &c.Axis}}
}

func (c *Concat) Infer(n *ir.Node) error {
	if len(n.Inputs) == 0 {
		return fmt.Errorf("Concat expects at least one input")
	}
	first := n.Inputs[0].PortInfo()
	if first.Shape == nil {
		n.OutPorts = []ir.Port{{Type: first.Type, Shape: ir.DynamicShape()}}
		return nil
	}
	axis := c.Axis
	if axis < 0 {
		axis += int64(len(first.Shape))
	}
	if axis < 0 || axis >= int64(len(first.Shape)) {
		return fmt.Errorf("Concat axis %d out of range for shape %s", c.Axis, first.Shape)
	}
	out := first.Shape.Clone()
	total := ir.Dimension(0)
	for _, in := range n.Inputs {
		p := in.PortInfo()
		if p.Shape == nil || len(p.Shape) != len(out) {
			n.OutPorts = []ir.Port{{Type: first.Type, Shape: ir.DynamicShape()}}
			return nil
		}
		d := p.Shape[axis]
		if d.IsDynamic() || total.IsDynamic() {
			total = ir.DynamicDimension
		} else {
			total += d
		}
		for i := range out {
			if int64(i) != axis && out[i] != p.Shape[i] {
				out[i] = ir.DynamicDimension
			}
		}
	}
	out[axis] = total
	n.OutPorts = []ir.Port{{Type: first.Type, Shape: out}}
	return nil
}

func (c *Concat) Clone() ir.Operation {
	cl := *c
	return &cl
}

// Reshape reinterprets its first input with the shape supplied on the
// second. The target shape is a runtime value, so the inferred output
// has unknown rank.
type Reshape struct {
	SpecialZero bool
}

// NewReshape returns a blank Reshape.
func NewReshape() *Reshape { return &Reshape{} }

func (*Reshape) TypeName() string { return "Reshape" }

func (r *Reshape) AttrFields() []ir.AttrField {
	return []ir.AttrField{{Name: "special_zero", Slot: &r.SpecialZero}}
}

func (r *Reshape) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	if _, err := inputPort(n, 1); err != nil {
		return err
	}
	n.OutPorts = []ir.Port{{Type: in.Type, Shape: ir.DynamicShape()}}
	return nil
}

func (r *Reshape) Clone() ir.Operation {
	c := *r
	return &c
}

// Transpose permutes axes by the order supplied on the second input.
type Transpose struct{}

// NewTranspose returns a blank Transpose.
func NewTranspose() *Transpose { return &Transpose{} }

func (*Transpose) TypeName() string { return "Transpose" }

func (*Transpose) AttrFields() []ir.AttrField { return nil }

func (t *Transpose) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	if _, err := inputPort(n, 1); err != nil {
		return err
	}
	shape := ir.DynamicShape()
	if in.Shape != nil {
		// Rank survives the permutation even when the order is unknown.
		shape = make(ir.PartialShape, len(in.Shape))
		for i := range shape {
			shape[i] = ir.DynamicDimension
		}
	}
	n.OutPorts = []ir.Port{{Type: in.Type, Shape: shape}}
	return nil
}

func (t *Transpose) Clone() ir.Operation {
	c := *t
	return &c
}

// MatMul is a batched matrix product with optional transposes.
type MatMul struct {
	TransposeA bool
	TransposeB bool
}

// NewMatMul returns a blank MatMul.
func NewMatMul() *MatMul { return &MatMul{} }

func (*MatMul) TypeName() string { return "MatMul" }

func (m *MatMul) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "transpose_a", Slot: &m.TransposeA},
		{Name: "transpose_b", Slot: &m.TransposeB},
	}
}

func (m *MatMul) Infer(n *ir.Node) error {
	a, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	b, err := inputPort(n, 1)
	if err != nil {
		return err
	}
	if a.Shape == nil || b.Shape == nil || len(a.Shape) < 2 || len(b.Shape) < 2 {
		n.OutPorts = []ir.Port{{Type: a.Type, Shape: ir.DynamicShape()}}
		return nil
	}
	ra, rb := len(a.Shape), len(b.Shape)
	rows := a.Shape[ra-2]
	if m.TransposeA {
		rows = a.Shape[ra-1]
	}
	cols := b.Shape[rb-1]
	if m.TransposeB {
		cols = b.Shape[rb-2]
	}
	batch, err := broadcastShapes(a.Shape[:ra-2], b.Shape[:rb-2])
	if err != nil {
		return fmt.Errorf("MatMul: %w", err)
	}
	out := append(batch.Clone(), rows, cols)
	n.OutPorts = []ir.Port{{Type: a.Type, Shape: out}}
	return nil
}

func (m *MatMul) Clone() ir.Operation {
	c := *m
	return &c
}
