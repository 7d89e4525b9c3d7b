package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyx-ml/graphir/internal/ir"
	"github.com/calyx-ml/graphir/internal/opset"
)

// testDeserializer builds a deserializer over one layer element with an
// optional shared weight store.
func testDeserializer(t *testing.T, xml string, weights []byte) *deserializer {
	t.Helper()
	return &deserializer{
		node:      mustElement(t, xml),
		weights:   ir.NewWeights(weights),
		opsets:    opset.Builtin(),
		variables: make(map[string]*ir.Variable),
		io:        newIOMaps(),
	}
}

func TestVisitAttrScalars(t *testing.T) {
	d := testDeserializer(t, `
		<layer id="0" name="n" type="X" version="opset1">
			<data mode="bilinear" axis="-3" alpha="0.75" flag="true"/>
		</layer>`, nil)
	p := layerParams{ID: 0, Name: "n", Type: "X"}

	var s string
	require.NoError(t, d.visitAttr(p, "mode", &s))
	assert.Equal(t, "bilinear", s)

	var i int64
	require.NoError(t, d.visitAttr(p, "axis", &i))
	assert.Equal(t, int64(-3), i)

	var f float64
	require.NoError(t, d.visitAttr(p, "alpha", &f))
	assert.Equal(t, 0.75, f)

	var b bool
	require.NoError(t, d.visitAttr(p, "flag", &b))
	assert.True(t, b)

	// Absent attributes leave the slot untouched.
	s = "default"
	require.NoError(t, d.visitAttr(p, "missing", &s))
	assert.Equal(t, "default", s)
}

func TestVisitAttrBoolSpellings(t *testing.T) {
	tests := []struct {
		raw      string
		initial  bool
		expected bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"TRUE", false, true},
		{"false", true, false},
		{"0", true, false},
		{"maybe", true, true}, // unrecognized text leaves the slot unset
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d := testDeserializer(t, `<layer><data flag="`+tt.raw+`"/></layer>`, nil)
			b := tt.initial
			require.NoError(t, d.visitAttr(layerParams{}, "flag", &b))
			assert.Equal(t, tt.expected, b)
		})
	}
}

func TestVisitAttrStrictScalars(t *testing.T) {
	d := testDeserializer(t, `<layer><data axis="two" alpha="big"/></layer>`, nil)

	var i int64
	err := d.visitAttr(layerParams{Name: "n"}, "axis", &i)
	require.Error(t, err)
	assert.True(t, IsMalformedIR(err))

	var f float64
	err = d.visitAttr(layerParams{Name: "n"}, "alpha", &f)
	require.Error(t, err)
	assert.True(t, IsMalformedIR(err))
}

func TestVisitAttrLists(t *testing.T) {
	d := testDeserializer(t, `
		<layer>
			<data strides="2,2" pads="0,1" axes="0,2,3" order="1,0"
			      scales="0.5,0.25" names="a\,b,c" types="f32,i64"/>
		</layer>`, nil)
	p := layerParams{}

	var strides ir.Strides
	require.NoError(t, d.visitAttr(p, "strides", &strides))
	assert.Equal(t, ir.Strides{2, 2}, strides)

	var pads ir.CoordinateDiff
	require.NoError(t, d.visitAttr(p, "pads", &pads))
	assert.Equal(t, ir.CoordinateDiff{0, 1}, pads)

	var axes ir.AxisSet
	require.NoError(t, d.visitAttr(p, "axes", &axes))
	assert.Equal(t, ir.AxisSet{0, 2, 3}, axes)

	var order []int64
	require.NoError(t, d.visitAttr(p, "order", &order))
	assert.Equal(t, []int64{1, 0}, order)

	var order32 []int32
	require.NoError(t, d.visitAttr(p, "order", &order32))
	assert.Equal(t, []int32{1, 0}, order32)

	var scales []float64
	require.NoError(t, d.visitAttr(p, "scales", &scales))
	assert.Equal(t, []float64{0.5, 0.25}, scales)

	var names []string
	require.NoError(t, d.visitAttr(p, "names", &names))
	assert.Equal(t, []string{"a,b", "c"}, names)

	var types []ir.ElementType
	require.NoError(t, d.visitAttr(p, "types", &types))
	assert.Equal(t, []ir.ElementType{ir.F32, ir.I64}, types)
}

func TestVisitAttrShapes(t *testing.T) {
	d := testDeserializer(t, `<layer><data shape="1,-1,224"/></layer>`, nil)
	p := layerParams{}

	var ps ir.PartialShape
	require.NoError(t, d.visitAttr(p, "shape", &ps))
	assert.Equal(t, "[1,?,224]", ps.String())

	var sh ir.Shape
	require.NoError(t, d.visitAttr(p, "shape", &sh))
	assert.Equal(t, ir.Shape{1, -1, 224}, sh)
}

func TestVisitAttrElementType(t *testing.T) {
	d := testDeserializer(t, `<layer><data element_type="FP16" bad="float128"/></layer>`, nil)
	p := layerParams{}

	var et ir.ElementType
	require.NoError(t, d.visitAttr(p, "element_type", &et))
	assert.Equal(t, ir.F16, et)

	err := d.visitAttr(p, "bad", &et)
	require.Error(t, err)
	assert.True(t, IsMalformedIR(err))
}

func TestVisitAttrUnknownSlot(t *testing.T) {
	d := testDeserializer(t, `<layer><data x="1"/></layer>`, nil)

	var slot complex128
	err := d.visitAttr(layerParams{Name: "n", Type: "X"}, "x", &slot)
	require.Error(t, err)
	assert.True(t, IsContractViolation(err))
}

func TestVisitAttrVariableSharing(t *testing.T) {
	d := testDeserializer(t, `<layer><data variable_id="state_7"/></layer>`, nil)
	p := layerParams{}

	var first, second *ir.Variable
	require.NoError(t, d.visitAttr(p, "variable_id", &first))
	require.NoError(t, d.visitAttr(p, "variable_id", &second))

	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, "state_7", first.ID)
	assert.Equal(t, ir.Dynamic, first.Type)
}

func TestVisitAttrFrameworkBag(t *testing.T) {
	d := testDeserializer(t, `
		<layer id="4" name="mystery" type="VendorOp" version="vendor_opset">
			<data alpha="0.1" mode="strict"/>
		</layer>`, nil)
	p := layerParams{ID: 4, Name: "mystery", Type: "VendorOp", Version: "vendor_opset"}

	var bag opset.FrameworkAttrs
	require.NoError(t, d.visitAttr(p, "framework", &bag))
	assert.Equal(t, "VendorOp", bag.TypeName)
	assert.Equal(t, "vendor_opset", bag.OpsetName)
	assert.Equal(t, map[string]string{"alpha": "0.1", "mode": "strict"}, bag.Attrs)
}

func TestVisitBlobInlinePayload(t *testing.T) {
	d := testDeserializer(t, `<layer type="X"><data payload="raw bytes here"/></layer>`, nil)

	var blob ir.Blob
	require.NoError(t, d.visitAttr(layerParams{Type: "X"}, "payload", &blob))
	assert.Equal(t, []byte("raw bytes here"), blob.Data)
	assert.False(t, blob.Shared)
}

func TestVisitBlobWeightView(t *testing.T) {
	weights := make([]byte, 100)
	for i := range weights {
		weights[i] = byte(i)
	}
	// 5 f32 elements: 20 bytes at offset 10.
	d := testDeserializer(t, `
		<layer type="Const">
			<data offset="10" size="20" element_type="f32" shape="5"/>
		</layer>`, weights)

	var blob ir.Blob
	require.NoError(t, d.visitAttr(layerParams{Type: "Const"}, "value", &blob))
	require.Len(t, blob.Data, 20)
	assert.True(t, blob.Shared)
	assert.Equal(t, byte(10), blob.Data[0])
	assert.Equal(t, byte(29), blob.Data[19])

	// The view aliases the store rather than copying it.
	weights[10] = 0xFF
	assert.Equal(t, byte(0xFF), blob.Data[0])
}

func TestVisitBlobValidation(t *testing.T) {
	tests := []struct {
		name    string
		weights []byte
		data    string
	}{
		{"empty store", nil, `offset="0" size="4" element_type="f32" shape="1"`},
		{"out of range", make([]byte, 16), `offset="8" size="16" element_type="f32" shape="4"`},
		{"negative offset", make([]byte, 16), `offset="-4" size="4" element_type="f32" shape="1"`},
		{"footprint exceeds size", make([]byte, 64), `offset="0" size="8" element_type="f32" shape="2,2"`},
		{"offset near max int64", make([]byte, 64), `offset="9223372036854775800" size="8" element_type="f32" shape="2"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDeserializer(t, `<layer type="Const"><data `+tt.data+`/></layer>`, tt.weights)
			var blob ir.Blob
			err := d.visitAttr(layerParams{Type: "Const"}, "value", &blob)
			require.Error(t, err)
			assert.True(t, IsInconsistentWeights(err))
		})
	}
}

func TestVisitBlobIgnoresNonConstant(t *testing.T) {
	// A weight reference on a non-constant layer is not a blob source.
	d := testDeserializer(t, `<layer type="Relu"><data offset="0" size="4"/></layer>`, make([]byte, 16))

	var blob ir.Blob
	require.NoError(t, d.visitAttr(layerParams{Type: "Relu"}, "value", &blob))
	assert.Nil(t, blob.Data)
}
