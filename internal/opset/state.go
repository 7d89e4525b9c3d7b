package opset

import (
	"fmt"

	"github.com/calyx-ml/graphir/internal/ir"
)

// Stateful is implemented by operations bound to a persistent-state
// variable descriptor.
type Stateful interface {
	Variable() *ir.Variable
}

// VariableOf returns the operation's bound variable descriptor, if any.
func VariableOf(op ir.Operation) (*ir.Variable, bool) {
	s, ok := op.(Stateful)
	if !ok || s.Variable() == nil {
		return nil, false
	}
	return s.Variable(), true
}

// ReadValue reads the current value of a persistent-state variable. Its
// single input supplies the initializing value.
type ReadValue struct {
	Var *ir.Variable
}

// NewReadValue returns an unbound ReadValue.
func NewReadValue() *ReadValue { return &ReadValue{} }

func (*ReadValue) TypeName() string { return "ReadValue" }

func (r *ReadValue) AttrFields() []ir.AttrField {
	return []ir.AttrField{{Name: "variable_id", Slot: &r.Var}}
}

func (r *ReadValue) Variable() *ir.Variable { return r.Var }

func (r *ReadValue) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	if r.Var == nil {
		return fmt.Errorf("ReadValue has no bound variable")
	}
	if r.Var.Shape == nil {
		r.Var.Shape = in.Shape.Clone()
		r.Var.Type = in.Type
	}
	n.OutPorts = []ir.Port{{Type: in.Type, Shape: in.Shape.Clone()}}
	return nil
}

func (r *ReadValue) Clone() ir.Operation {
	c := *r
	return &c
}

// Assign writes its input into a persistent-state variable. It is a
// sink: the graph keeps it alive even though nothing consumes its
// output.
type Assign struct {
	Var *ir.Variable
}

// NewAssign returns an unbound Assign.
func NewAssign() *Assign { return &Assign{} }

func (*Assign) TypeName() string { return "Assign" }

func (a *Assign) AttrFields() []ir.AttrField {
	return []ir.AttrField{{Name: "variable_id", Slot: &a.Var}}
}

func (a *Assign) Variable() *ir.Variable { return a.Var }

func (a *Assign) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	if a.Var == nil {
		return fmt.Errorf("Assign has no bound variable")
	}
	n.OutPorts = []ir.Port{{Type: in.Type, Shape: in.Shape.Clone()}}
	return nil
}

func (a *Assign) Clone() ir.Operation {
	c := *a
	return &c
}
