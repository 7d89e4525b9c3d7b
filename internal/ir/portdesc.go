package ir

// Port-map descriptors bind a loop construct's external ports to the
// parameters and results of its nested body graph. Indices are dense
// positions into the body's parameter/result lists, not declared layer
// ids.

// InputDescriptor is the closed variant of loop input bindings:
// InvariantInput, SlicedInput or MergedInput.
type InputDescriptor interface {
	// ExternalPort is the enclosing node's input this binding consumes.
	ExternalPort() int64
	// BodyParameter is the dense index of the bound body parameter.
	BodyParameter() int64
}

// OutputDescriptor is the closed variant of loop output bindings:
// ConcatOutput or FinalOutput.
type OutputDescriptor interface {
	// Position is the dense index of the enclosing node's output this
	// binding produces.
	Position() int64
	// BodyResult is the dense index of the bound body result.
	BodyResult() int64
}

type inputBinding struct {
	External  int64
	BodyParam int64
}

func (b inputBinding) ExternalPort() int64 { return b.External }
func (b inputBinding) BodyParameter() int64 { return b.BodyParam }

// InvariantInput binds an external input to a body parameter unchanged
// across iterations.
type InvariantInput struct {
	inputBinding
}

// NewInvariantInput builds an invariant binding.
func NewInvariantInput(external, bodyParam int64) *InvariantInput {
	return &InvariantInput{inputBinding{External: external, BodyParam: bodyParam}}
}

// SlicedInput binds an external input sliced along Axis, the iteration
// window controlled by Start, Stride, PartSize and End. End == -1 means
// the window runs to the final element.
type SlicedInput struct {
	inputBinding
	Start    int64
	Stride   int64
	PartSize int64
	End      int64
	Axis     int64
}

// MergedInput binds an external input to a body parameter for iteration
// zero and thereafter feeds back the body result BodyRes from the
// previous iteration.
type MergedInput struct {
	inputBinding
	BodyRes int64
}

type outputBinding struct {
	Pos     int64
	BodyRes int64
}

func (b outputBinding) Position() int64 { return b.Pos }
func (b outputBinding) BodyResult() int64 { return b.BodyRes }

// ConcatOutput collects one value per iteration from a body result and
// concatenates them along Axis using the sliced-input windowing
// parameters.
type ConcatOutput struct {
	outputBinding
	Start    int64
	Stride   int64
	PartSize int64
	End      int64
	Axis     int64
}

// FinalOutput exposes only the last iteration's body-result value.
// Iteration == -1 selects the final executed iteration.
type FinalOutput struct {
	outputBinding
	Iteration int64
}

// NewFinalOutput builds a last-iteration binding.
func NewFinalOutput(position, bodyResult int64) *FinalOutput {
	return &FinalOutput{outputBinding: outputBinding{Pos: position, BodyRes: bodyResult}, Iteration: -1}
}

// SpecialPorts marks the body parameter receiving the iteration counter
// and the body result supplying the loop continuation condition. -1
// means no such port.
type SpecialPorts struct {
	CurrentIteration   int64
	ExecutionCondition int64
}

// NoSpecialPorts is the default: neither special port is present.
func NoSpecialPorts() SpecialPorts {
	return SpecialPorts{CurrentIteration: -1, ExecutionCondition: -1}
}
