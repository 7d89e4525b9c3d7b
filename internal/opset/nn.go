package opset

import (
	"fmt"
	"strings"

	"github.com/calyx-ml/graphir/internal/ir"
)

// TopKMode selects which extreme TopK keeps.
type TopKMode int

const (
	TopKModeMax TopKMode = iota
	TopKModeMin
)

// ParseTopKMode maps a serialized mode name. Unrecognized names are an
// error.
func ParseTopKMode(s string) (TopKMode, error) {
	switch strings.ToLower(s) {
	case "max":
		return TopKModeMax, nil
	case "min":
		return TopKModeMin, nil
	}
	return 0, fmt.Errorf("unknown TopK mode %q", s)
}

func (m TopKMode) String() string {
	if m == TopKModeMin {
		return "min"
	}
	return "max"
}

// TopKSortType selects the ordering of the kept elements.
type TopKSortType int

const (
	TopKSortNone TopKSortType = iota
	TopKSortValues
	TopKSortIndices
)

// ParseTopKSortType maps a serialized sort-order name. Unrecognized
// names are an error.
func ParseTopKSortType(s string) (TopKSortType, error) {
	switch strings.ToLower(s) {
	case "none":
		return TopKSortNone, nil
	case "value":
		return TopKSortValues, nil
	case "index":
		return TopKSortIndices, nil
	}
	return 0, fmt.Errorf("unknown TopK sort type %q", s)
}

func (t TopKSortType) String() string {
	switch t {
	case TopKSortValues:
		return "value"
	case TopKSortIndices:
		return "index"
	}
	return "none"
}

// TopK selects the K largest or smallest elements along Axis. Values
// and indices come out on two ports.
type TopK struct {
	Axis             int64
	Mode             TopKMode
	Sort             TopKSortType
	IndexElementType ir.ElementType
}

// NewTopK returns a TopK with i32 indices.
func NewTopK() *TopK {
	return &TopK{IndexElementType: ir.I32}
}

func (*TopK) TypeName() string { return "TopK" }

func (t *TopK) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "axis", Slot: &t.Axis},
		{Name: "mode", Slot: &t.Mode},
		{Name: "sort", Slot: &t.Sort},
		{Name: "index_element_type", Slot: &t.IndexElementType},
	}
}

func (t *TopK) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	shape := ir.DynamicShape()
	if in.Shape != nil {
		axis := t.Axis
		if axis < 0 {
			axis += int64(len(in.Shape))
		}
		if axis < 0 || axis >= int64(len(in.Shape)) {
			return fmt.Errorf("TopK axis %d out of range for shape %s", t.Axis, in.Shape)
		}
		shape = in.Shape.Clone()
		// K is a runtime input.
		shape[axis] = ir.DynamicDimension
	}
	n.OutPorts = []ir.Port{
		{Type: in.Type, Shape: shape},
		{Type: t.IndexElementType, Shape: shape.Clone()},
	}
	return nil
}

func (t *TopK) Clone() ir.Operation {
	c := *t
	return &c
}

// Convolution is a spatial convolution over [N, C, spatial...] data.
type Convolution struct {
	Strides   ir.Strides
	Dilations ir.Strides
	PadsBegin ir.CoordinateDiff
	PadsEnd   ir.CoordinateDiff
	AutoPad   string
}

// NewConvolution returns a blank Convolution with explicit padding.
func NewConvolution() *Convolution {
	return &Convolution{AutoPad: "explicit"}
}

func (*Convolution) TypeName() string { return "Convolution" }

func (c *Convolution) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "strides", Slot: &c.Strides},
		{Name: "dilations", Slot: &c.Dilations},
		{Name: "pads_begin", Slot: &c.PadsBegin},
		{Name: "pads_end", Slot: &c.PadsEnd},
		{Name: "auto_pad", Slot: &c.AutoPad},
	}
}

func (c *Convolution) Infer(n *ir.Node) error {
	data, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	filters, err := inputPort(n, 1)
	if err != nil {
		return err
	}
	if data.Shape == nil {
		n.OutPorts = []ir.Port{{Type: data.Type, Shape: ir.DynamicShape()}}
		return nil
	}
	out := make(ir.PartialShape, len(data.Shape))
	for i := range out {
		out[i] = ir.DynamicDimension
	}
	out[0] = data.Shape[0]
	if filters.Shape != nil && len(filters.Shape) > 0 {
		out[1] = filters.Shape[0]
	}
	n.OutPorts = []ir.Port{{Type: data.Type, Shape: out}}
	return nil
}

func (c *Convolution) Clone() ir.Operation {
	cl := *c
	cl.Strides = append(ir.Strides(nil), c.Strides...)
	cl.Dilations = append(ir.Strides(nil), c.Dilations...)
	cl.PadsBegin = append(ir.CoordinateDiff(nil), c.PadsBegin...)
	cl.PadsEnd = append(ir.CoordinateDiff(nil), c.PadsEnd...)
	return &cl
}

// MaxPool is a spatial max pooling.
type MaxPool struct {
	Strides      ir.Strides
	Kernel       ir.Shape
	PadsBegin    ir.Shape
	PadsEnd      ir.Shape
	RoundingType string
	AutoPad      string
}

// NewMaxPool returns a blank MaxPool with floor rounding.
func NewMaxPool() *MaxPool {
	return &MaxPool{RoundingType: "floor", AutoPad: "explicit"}
}

func (*MaxPool) TypeName() string { return "MaxPool" }

func (m *MaxPool) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "strides", Slot: &m.Strides},
		{Name: "kernel", Slot: &m.Kernel},
		{Name: "pads_begin", Slot: &m.PadsBegin},
		{Name: "pads_end", Slot: &m.PadsEnd},
		{Name: "rounding_type", Slot: &m.RoundingType},
		{Name: "auto_pad", Slot: &m.AutoPad},
	}
}

func (m *MaxPool) Infer(n *ir.Node) error {
	data, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	if data.Shape == nil {
		n.OutPorts = []ir.Port{{Type: data.Type, Shape: ir.DynamicShape()}}
		return nil
	}
	out := make(ir.PartialShape, len(data.Shape))
	for i := range out {
		out[i] = ir.DynamicDimension
	}
	if len(out) > 0 {
		out[0] = data.Shape[0]
	}
	if len(out) > 1 {
		out[1] = data.Shape[1]
	}
	n.OutPorts = []ir.Port{{Type: data.Type, Shape: out}}
	return nil
}

func (m *MaxPool) Clone() ir.Operation {
	c := *m
	c.Strides = append(ir.Strides(nil), m.Strides...)
	c.Kernel = append(ir.Shape(nil), m.Kernel...)
	c.PadsBegin = append(ir.Shape(nil), m.PadsBegin...)
	c.PadsEnd = append(ir.Shape(nil), m.PadsEnd...)
	return &c
}

// MVN is mean-variance normalization.
type MVN struct {
	AcrossChannels    bool
	NormalizeVariance bool
	Eps               float64
}

// NewMVN returns an MVN with variance normalization enabled.
func NewMVN() *MVN {
	return &MVN{NormalizeVariance: true, Eps: 1e-9}
}

func (*MVN) TypeName() string { return "MVN" }

func (m *MVN) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "across_channels", Slot: &m.AcrossChannels},
		{Name: "normalize_variance", Slot: &m.NormalizeVariance},
		{Name: "eps", Slot: &m.Eps},
	}
}

func (m *MVN) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	n.OutPorts = []ir.Port{{Type: in.Type, Shape: in.Shape.Clone()}}
	return nil
}

func (m *MVN) Clone() ir.Operation {
	c := *m
	return &c
}

// ROIPooling pools feature-map regions to a fixed spatial size.
type ROIPooling struct {
	PooledH      int64
	PooledW      int64
	SpatialScale float64
	Method       string
}

// NewROIPooling returns a blank ROIPooling using max pooling.
func NewROIPooling() *ROIPooling {
	return &ROIPooling{Method: "max"}
}

func (*ROIPooling) TypeName() string { return "ROIPooling" }

func (r *ROIPooling) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "pooled_h", Slot: &r.PooledH},
		{Name: "pooled_w", Slot: &r.PooledW},
		{Name: "spatial_scale", Slot: &r.SpatialScale},
		{Name: "method", Slot: &r.Method},
	}
}

func (r *ROIPooling) Infer(n *ir.Node) error {
	data, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	if _, err := inputPort(n, 1); err != nil {
		return err
	}
	channels := ir.DynamicDimension
	if data.Shape != nil && len(data.Shape) > 1 {
		channels = data.Shape[1]
	}
	out := ir.PartialShape{ir.DynamicDimension, channels, ir.Dimension(r.PooledH), ir.Dimension(r.PooledW)}
	n.OutPorts = []ir.Port{{Type: data.Type, Shape: out}}
	return nil
}

func (r *ROIPooling) Clone() ir.Operation {
	c := *r
	return &c
}

// ReorgYolo rearranges spatial blocks into channels.
type ReorgYolo struct {
	Stride ir.Strides
}

// NewReorgYolo returns a blank ReorgYolo.
func NewReorgYolo() *ReorgYolo { return &ReorgYolo{} }

func (*ReorgYolo) TypeName() string { return "ReorgYolo" }

func (r *ReorgYolo) AttrFields() []ir.AttrField {
	return []ir.AttrField{{Name: "stride", Slot: &r.Stride}}
}

func (r *ReorgYolo) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	shape := ir.DynamicShape()
	if in.Shape != nil {
		shape = make(ir.PartialShape, len(in.Shape))
		for i := range shape {
			shape[i] = ir.DynamicDimension
		}
	}
	n.OutPorts = []ir.Port{{Type: in.Type, Shape: shape}}
	return nil
}

func (r *ReorgYolo) Clone() ir.Operation {
	c := *r
	c.Stride = append(ir.Strides(nil), r.Stride...)
	return &c
}

// Proposal generates region proposals from RPN outputs.
type Proposal struct {
	BaseSize           int64
	PreNmsTopN         int64
	PostNmsTopN        int64
	NmsThresh          float64
	FeatStride         int64
	MinSize            int64
	Ratio              []float64
	Scale              []float64
	ClipBeforeNms      bool
	ClipAfterNms       bool
	Normalize          bool
	BoxSizeScale       float64
	BoxCoordinateScale float64
	Framework          string
}

// NewProposal returns a Proposal with the serialized defaults.
func NewProposal() *Proposal {
	return &Proposal{
		ClipBeforeNms:      true,
		BoxSizeScale:       1,
		BoxCoordinateScale: 1,
	}
}

func (*Proposal) TypeName() string { return "Proposal" }

func (p *Proposal) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "base_size", Slot: &p.BaseSize},
		{Name: "pre_nms_topn", Slot: &p.PreNmsTopN},
		{Name: "post_nms_topn", Slot: &p.PostNmsTopN},
		{Name: "nms_thresh", Slot: &p.NmsThresh},
		{Name: "feat_stride", Slot: &p.FeatStride},
		{Name: "min_size", Slot: &p.MinSize},
		{Name: "ratio", Slot: &p.Ratio},
		{Name: "scale", Slot: &p.Scale},
		{Name: "clip_before_nms", Slot: &p.ClipBeforeNms},
		{Name: "clip_after_nms", Slot: &p.ClipAfterNms},
		{Name: "normalize", Slot: &p.Normalize},
		{Name: "box_size_scale", Slot: &p.BoxSizeScale},
		{Name: "box_coordinate_scale", Slot: &p.BoxCoordinateScale},
		{Name: "framework", Slot: &p.Framework},
	}
}

func (p *Proposal) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	n.OutPorts = []ir.Port{{Type: in.Type, Shape: ir.PartialShape{ir.DynamicDimension, 5}}}
	return nil
}

func (p *Proposal) Clone() ir.Operation {
	c := *p
	c.Ratio = append([]float64(nil), p.Ratio...)
	c.Scale = append([]float64(nil), p.Scale...)
	return &c
}

type recurrentCell struct {
	typeName         string
	HiddenSize       int64
	Activations      []string
	ActivationsAlpha []float64
	ActivationsBeta  []float64
	Clip             float64
	stateOutputs     int
}

func (r *recurrentCell) TypeName() string { return r.typeName }

func (r *recurrentCell) AttrFields() []ir.AttrField {
	return []ir.AttrField{
		{Name: "hidden_size", Slot: &r.HiddenSize},
		{Name: "activations", Slot: &r.Activations},
		{Name: "activations_alpha", Slot: &r.ActivationsAlpha},
		{Name: "activations_beta", Slot: &r.ActivationsBeta},
		{Name: "clip", Slot: &r.Clip},
	}
}

func (r *recurrentCell) Infer(n *ir.Node) error {
	in, err := inputPort(n, 0)
	if err != nil {
		return err
	}
	batch := ir.DynamicDimension
	if in.Shape != nil && len(in.Shape) > 0 {
		batch = in.Shape[0]
	}
	hidden := ir.DynamicDimension
	if r.HiddenSize > 0 {
		hidden = ir.Dimension(r.HiddenSize)
	}
	ports := make([]ir.Port, r.stateOutputs)
	for i := range ports {
		ports[i] = ir.Port{Type: in.Type, Shape: ir.PartialShape{batch, hidden}}
	}
	n.OutPorts = ports
	return nil
}

func (r *recurrentCell) clone() recurrentCell {
	c := *r
	c.Activations = append([]string(nil), r.Activations...)
	c.ActivationsAlpha = append([]float64(nil), r.ActivationsAlpha...)
	c.ActivationsBeta = append([]float64(nil), r.ActivationsBeta...)
	return c
}

func (r *recurrentCell) Clone() ir.Operation {
	c := r.clone()
	return &c
}

// RNNCell is a single vanilla RNN step.
type RNNCell struct{ recurrentCell }

// NewRNNCell returns a blank RNNCell.
func NewRNNCell() *RNNCell {
	return &RNNCell{recurrentCell{typeName: "RNNCell", Activations: []string{"tanh"}, stateOutputs: 1}}
}

func (r *RNNCell) Clone() ir.Operation {
	return &RNNCell{r.recurrentCell.clone()}
}

// GRUCell is a single GRU step.
type GRUCell struct {
	recurrentCell
	LinearBeforeReset bool
}

// NewGRUCell returns a blank GRUCell.
func NewGRUCell() *GRUCell {
	return &GRUCell{recurrentCell: recurrentCell{typeName: "GRUCell", Activations: []string{"sigmoid", "tanh"}, stateOutputs: 1}}
}

func (g *GRUCell) AttrFields() []ir.AttrField {
	return append(g.recurrentCell.AttrFields(),
		ir.AttrField{Name: "linear_before_reset", Slot: &g.LinearBeforeReset})
}

func (g *GRUCell) Clone() ir.Operation {
	c := &GRUCell{recurrentCell: g.recurrentCell.clone(), LinearBeforeReset: g.LinearBeforeReset}
	return c
}

// LSTMCell is a single LSTM step producing hidden and cell state.
type LSTMCell struct{ recurrentCell }

// NewLSTMCell returns a blank LSTMCell.
func NewLSTMCell() *LSTMCell {
	return &LSTMCell{recurrentCell{typeName: "LSTMCell", Activations: []string{"sigmoid", "tanh", "tanh"}, stateOutputs: 2}}
}

func (l *LSTMCell) Clone() ir.Operation {
	return &LSTMCell{l.recurrentCell.clone()}
}

// detectronOp covers the ExperimentalDetectron family: attribute-free
// placeholders with a fixed output arity and fully dynamic signatures.
type detectronOp struct {
	typeName string
	outputs  int
}

func detectronOutputArity(name string) int {
	switch name {
	case "ExperimentalDetectronDetectionOutput":
		return 3
	case "ExperimentalDetectronGenerateProposalsSingleImage", "ExperimentalDetectronROIFeatureExtractor":
		return 2
	}
	return 1
}

func detectronFactory(name string) Factory {
	return func() ir.Operation {
		return &detectronOp{typeName: name, outputs: detectronOutputArity(name)}
	}
}

func (d *detectronOp) TypeName() string { return d.typeName }
func (d *detectronOp) AttrFields() []ir.AttrField { return nil }

func (d *detectronOp) Infer(n *ir.Node) error {
	ports := make([]ir.Port, d.outputs)
	for i := range ports {
		ports[i] = ir.Port{Type: ir.F32, Shape: ir.DynamicShape()}
	}
	n.OutPorts = ports
	return nil
}

func (d *detectronOp) Clone() ir.Operation {
	c := *d
	return &c
}
