package opset

import (
	"fmt"

	"github.com/calyx-ml/graphir/internal/ir"
)

// SubGraphOp is implemented by loop constructs embedding a body graph.
type SubGraphOp interface {
	BodyGraph() *ir.Graph
	InputDescriptions() []ir.InputDescriptor
	OutputDescriptions() []ir.OutputDescriptor
}

type subGraphBase struct {
	Body        *ir.Graph
	InputDescs  []ir.InputDescriptor
	OutputDescs []ir.OutputDescriptor
}

func (s *subGraphBase) BodyGraph() *ir.Graph { return s.Body }
func (s *subGraphBase) InputDescriptions() []ir.InputDescriptor { return s.InputDescs }
func (s *subGraphBase) OutputDescriptions() []ir.OutputDescriptor { return s.OutputDescs }

// inferFromDescriptors resolves the loop node's output ports from its
// output descriptors: a final-value output takes the body result's
// signature, a concatenated output widens the concat axis since the
// iteration count is a runtime value.
func (s *subGraphBase) inferFromDescriptors(typeName string, n *ir.Node) error {
	if s.Body == nil {
		return fmt.Errorf("%s has no body", typeName)
	}
	var ports []ir.Port
	for _, desc := range s.OutputDescs {
		idx := desc.BodyResult()
		if idx < 0 || idx >= int64(len(s.Body.Results)) {
			return fmt.Errorf("%s output description references body result %d out of range (body has %d results)",
				typeName, idx, len(s.Body.Results))
		}
		res := s.Body.Results[idx].OutPorts[0]
		port := ir.Port{Type: res.Type, Shape: res.Shape.Clone()}
		if c, ok := desc.(*ir.ConcatOutput); ok && port.Shape != nil {
			axis := c.Axis
			if axis < 0 {
				axis += int64(len(port.Shape))
			}
			if axis < 0 || axis >= int64(len(port.Shape)) {
				return fmt.Errorf("%s concat axis %d out of range for body result shape %s", typeName, c.Axis, res.Shape)
			}
			port.Shape[axis] = ir.DynamicDimension
		}
		for int64(len(ports)) <= desc.Position() {
			ports = append(ports, ir.Port{Type: ir.Dynamic, Shape: ir.DynamicShape()})
		}
		ports[desc.Position()] = port
	}
	n.OutPorts = ports
	return nil
}

func (s *subGraphBase) clone() subGraphBase {
	c := *s
	c.InputDescs = append([]ir.InputDescriptor(nil), s.InputDescs...)
	c.OutputDescs = append([]ir.OutputDescriptor(nil), s.OutputDescs...)
	return c
}

// TensorIterator runs its body once per slice of its sliced inputs.
type TensorIterator struct {
	subGraphBase
}

// NewTensorIterator returns a blank TensorIterator.
func NewTensorIterator() *TensorIterator { return &TensorIterator{} }

func (*TensorIterator) TypeName() string { return "TensorIterator" }

func (t *TensorIterator) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "body", Slot: &t.Body},
		{Name: "input_descriptions", Slot: &t.InputDescs},
		{Name: "output_descriptions", Slot: &t.OutputDescs},
	}
}

func (t *TensorIterator) Infer(n *ir.Node) error {
	return t.inferFromDescriptors("TensorIterator", n)
}

func (t *TensorIterator) Clone() ir.Operation {
	return &TensorIterator{t.subGraphBase.clone()}
}

// Loop runs its body while the execution condition holds, with an
// optional current-iteration parameter and condition result marked as
// special body ports.
type Loop struct {
	subGraphBase
	Special ir.SpecialPorts
}

// NewLoop returns a blank Loop with no special ports.
func NewLoop() *Loop {
	return &Loop{Special: ir.NoSpecialPorts()}
}

func (*Loop) TypeName() string { return "Loop" }

func (l *Loop) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "body", Slot: &l.Body},
		{Name: "input_descriptions", Slot: &l.InputDescs},
		{Name: "output_descriptions", Slot: &l.OutputDescs},
		{Name: "special_body_ports", Slot: &l.Special},
	}
}

func (l *Loop) Infer(n *ir.Node) error {
	return l.inferFromDescriptors("Loop", n)
}

func (l *Loop) Clone() ir.Operation {
	return &Loop{subGraphBase: l.subGraphBase.clone(), Special: l.Special}
}
