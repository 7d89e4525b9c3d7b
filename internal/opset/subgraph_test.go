package opset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyx-ml/graphir/internal/ir"
)

// loopBody builds a one-result body graph with the given result port.
func loopBody(t ir.ElementType, dims ...int64) *ir.Graph {
	res := &ir.Node{
		Name:     "body_out",
		TypeName: "Result",
		OutPorts: []ir.Port{{Type: t, Shape: ir.NewPartialShape(dims)}},
	}
	return &ir.Graph{Name: "body", Results: []*ir.Node{res}, Nodes: []*ir.Node{res}}
}

func TestTensorIteratorFinalOutput(t *testing.T) {
	ti := NewTensorIterator()
	ti.Body = loopBody(ir.F32, 1, 4)
	ti.OutputDescs = []ir.OutputDescriptor{ir.NewFinalOutput(0, 0)}

	n := &ir.Node{TypeName: "TensorIterator"}
	require.NoError(t, ti.Infer(n))
	require.Len(t, n.OutPorts, 1)
	assert.Equal(t, "[1,4]", n.OutPorts[0].Shape.String())
	assert.Equal(t, ir.F32, n.OutPorts[0].Type)
}

func TestTensorIteratorConcatOutputWidensAxis(t *testing.T) {
	ti := NewTensorIterator()
	ti.Body = loopBody(ir.F32, 1, 4)
	concat := &ir.ConcatOutput{Axis: 0}
	ti.OutputDescs = []ir.OutputDescriptor{concat}

	n := &ir.Node{TypeName: "TensorIterator"}
	require.NoError(t, ti.Infer(n))
	require.Len(t, n.OutPorts, 1)
	// The iteration count is a runtime value.
	assert.Equal(t, "[?,4]", n.OutPorts[0].Shape.String())
}

func TestTensorIteratorBadDescriptor(t *testing.T) {
	ti := NewTensorIterator()
	ti.Body = loopBody(ir.F32, 1)
	ti.OutputDescs = []ir.OutputDescriptor{ir.NewFinalOutput(0, 3)}

	n := &ir.Node{TypeName: "TensorIterator"}
	err := ti.Infer(n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestTensorIteratorNoBody(t *testing.T) {
	ti := NewTensorIterator()
	assert.Error(t, ti.Infer(&ir.Node{TypeName: "TensorIterator"}))
}

func TestTensorIteratorSparsePositions(t *testing.T) {
	ti := NewTensorIterator()
	ti.Body = loopBody(ir.F32, 2)
	// Output at position 1 only: position 0 stays a dynamic filler.
	ti.OutputDescs = []ir.OutputDescriptor{ir.NewFinalOutput(1, 0)}

	n := &ir.Node{TypeName: "TensorIterator"}
	require.NoError(t, ti.Infer(n))
	require.Len(t, n.OutPorts, 2)
	assert.False(t, n.OutPorts[0].Shape.IsStatic())
	assert.Equal(t, "[2]", n.OutPorts[1].Shape.String())
}

func TestLoopSpecialPortsDefault(t *testing.T) {
	l := NewLoop()
	assert.Equal(t, int64(-1), l.Special.CurrentIteration)
	assert.Equal(t, int64(-1), l.Special.ExecutionCondition)
}

func TestLoopCloneIsIndependent(t *testing.T) {
	l := NewLoop()
	l.Body = loopBody(ir.F32, 1)
	l.OutputDescs = []ir.OutputDescriptor{ir.NewFinalOutput(0, 0)}
	l.Special = ir.SpecialPorts{CurrentIteration: 0, ExecutionCondition: 1}

	clone := l.Clone().(*Loop)
	clone.OutputDescs[0] = ir.NewFinalOutput(0, 5)
	assert.Equal(t, int64(0), l.OutputDescs[0].BodyResult())
	assert.Equal(t, l.Special, clone.Special)
	assert.Same(t, l.Body, clone.Body)
}
