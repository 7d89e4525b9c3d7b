// Package opset is the versioned operation registry: each OpSet is one
// registry snapshot mapping operation type names to factories for blank
// operations. The converter resolves a declared (type, version) pair to
// a snapshot, instantiates the operation, populates its attribute slots
// and asks it to infer output types.
package opset

import (
	"sort"
	"strings"

	"github.com/calyx-ml/graphir/internal/ir"
)

// Factory creates one blank operation.
type Factory func() ir.Operation

// OpSet is one registry snapshot.
type OpSet struct {
	name      string
	factories map[string]Factory // keyed by folded type name
	canonical map[string]string  // folded name -> declared name
}

// New creates an empty snapshot with the given name.
func New(name string) *OpSet {
	return &OpSet{
		name:      name,
		factories: make(map[string]Factory),
		canonical: make(map[string]string),
	}
}

// Name returns the snapshot name, e.g. "opset3".
func (s *OpSet) Name() string { return s.name }

// Register adds a factory under the operation's canonical type name.
func (s *OpSet) Register(typeName string, f Factory) {
	key := strings.ToLower(typeName)
	s.factories[key] = f
	s.canonical[key] = typeName
}

// Create instantiates a blank operation. Lookup is case-insensitive,
// matching how serialized documents spell type names.
func (s *OpSet) Create(typeName string) (ir.Operation, bool) {
	f, ok := s.factories[strings.ToLower(typeName)]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Contains reports whether the snapshot can instantiate the type.
func (s *OpSet) Contains(typeName string) bool {
	_, ok := s.factories[strings.ToLower(typeName)]
	return ok
}

// TypeNames returns the canonical names of every registered operation,
// sorted.
func (s *OpSet) TypeNames() []string {
	names := make([]string, 0, len(s.canonical))
	for _, n := range s.canonical {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *OpSet) clone(name string) *OpSet {
	c := New(name)
	for k, f := range s.factories {
		c.factories[k] = f
		c.canonical[k] = s.canonical[k]
	}
	return c
}

// Builtin returns the built-in registry snapshots opset1 through opset8,
// keyed by name. The returned map is fresh on every call so callers may
// extend it with extension snapshots.
func Builtin() map[string]*OpSet {
	s1 := New("opset1")
	s1.Register("Parameter", func() ir.Operation { return NewParameter() })
	s1.Register("Result", func() ir.Operation { return NewResult() })
	s1.Register("Constant", func() ir.Operation { return NewConstant() })
	s1.Register("Add", func() ir.Operation { return NewAdd() })
	s1.Register("Multiply", func() ir.Operation { return NewMultiply() })
	s1.Register("MatMul", func() ir.Operation { return NewMatMul() })
	s1.Register("Relu", func() ir.Operation { return NewRelu() })
	s1.Register("Sigmoid", func() ir.Operation { return NewSigmoid() })
	s1.Register("Softmax", func() ir.Operation { return NewSoftmax() })
	s1.Register("Concat", func() ir.Operation { return NewConcat() })
	s1.Register("Reshape", func() ir.Operation { return NewReshape() })
	s1.Register("Transpose", func() ir.Operation { return NewTranspose() })
	s1.Register("Convolution", func() ir.Operation { return NewConvolution() })
	s1.Register("MaxPool", func() ir.Operation { return NewMaxPool() })
	s1.Register("TopK", func() ir.Operation { return NewTopK() })
	s1.Register("LSTMCell", func() ir.Operation { return NewLSTMCell() })
	s1.Register("Proposal", func() ir.Operation { return NewProposal() })
	s1.Register("TensorIterator", func() ir.Operation { return NewTensorIterator() })

	s2 := s1.clone("opset2")
	s2.Register("MVN", func() ir.Operation { return NewMVN() })
	s2.Register("ROIPooling", func() ir.Operation { return NewROIPooling() })
	s2.Register("ReorgYolo", func() ir.Operation { return NewReorgYolo() })

	s3 := s2.clone("opset3")
	s3.Register("GRUCell", func() ir.Operation { return NewGRUCell() })
	s3.Register("RNNCell", func() ir.Operation { return NewRNNCell() })
	s3.Register("ReadValue", func() ir.Operation { return NewReadValue() })
	s3.Register("Assign", func() ir.Operation { return NewAssign() })

	s4 := s3.clone("opset4")

	s5 := s4.clone("opset5")
	s5.Register("Loop", func() ir.Operation { return NewLoop() })

	s6 := s5.clone("opset6")
	for _, name := range []string{
		"ExperimentalDetectronDetectionOutput",
		"ExperimentalDetectronGenerateProposalsSingleImage",
		"ExperimentalDetectronPriorGridGenerator",
		"ExperimentalDetectronROIFeatureExtractor",
		"ExperimentalDetectronTopKROIs",
	} {
		s6.Register(name, detectronFactory(name))
	}

	s7 := s6.clone("opset7")
	s8 := s7.clone("opset8")

	return map[string]*OpSet{
		"opset1": s1,
		"opset2": s2,
		"opset3": s3,
		"opset4": s4,
		"opset5": s5,
		"opset6": s6,
		"opset7": s7,
		"opset8": s8,
	}
}
