package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyx-ml/graphir/internal/document"
	"github.com/calyx-ml/graphir/internal/ir"
)

func mustElement(t *testing.T, xml string) *document.Element {
	t.Helper()
	doc, err := document.Parse([]byte(xml))
	require.NoError(t, err)
	return doc.Root()
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single", "a", []string{"a"}},
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"escaped comma", `a\,b,c`, []string{"a,b", "c"}},
		{"all escaped", `x\,y\,z`, []string{"x,y,z"}},
		{"trailing separator", "a,b,", []string{"a", "b"}},
		{"backslash kept", `a\b`, []string{`a\b`}},
		{"trailing backslash kept", `ab\`, []string{`ab\`}},
		{"whitespace preserved", " a , b", []string{" a ", " b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := splitList(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, items)
		})
	}
}

func TestSplitListEmptyElement(t *testing.T) {
	for _, input := range []string{"a,,b", ",a", ""} {
		t.Run(input, func(t *testing.T) {
			_, err := splitList(input)
			require.Error(t, err)
			assert.True(t, IsMalformedIR(err))
		})
	}
}

func TestParseInt64List(t *testing.T) {
	vals, err := parseInt64List("1, -2,3")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, -2, 3}, vals)

	_, err = parseInt64List("1,x,3")
	require.Error(t, err)
	assert.True(t, IsMalformedIR(err))
}

func TestParseFloat64List(t *testing.T) {
	vals, err := parseFloat64List("0.5,2,-1e3")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 2, -1000}, vals)

	_, err = parseFloat64List("0.5,nope")
	assert.Error(t, err)
}

func TestParseLayerParams(t *testing.T) {
	el := mustElement(t, `
		<layer id="3" name="conv1" type="Convolution" version="opset1">
			<input>
				<port id="0"><dim>1</dim><dim>3</dim></port>
				<port id="1"><dim>16</dim><dim>3</dim></port>
			</input>
			<output>
				<port id="2" precision="FP32" names="conv1_out"><dim>1</dim><dim>16</dim></port>
			</output>
		</layer>`)

	p, err := parseLayerParams(el)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, "Convolution", p.Type)
	assert.Equal(t, "opset1", p.Version)
	assert.Equal(t, "conv1", p.Name)
	require.Len(t, p.Inputs, 2)
	require.Len(t, p.Outputs, 1)
	assert.Equal(t, ir.F32, p.Outputs[0].Type)
	assert.Equal(t, []string{"conv1_out"}, p.Outputs[0].Names)
	assert.Equal(t, "[1,16]", p.Outputs[0].Dims.String())
}

func TestParseLayerParamsMissingAttrs(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"no id", `<layer name="x" type="Relu" version="opset1"/>`},
		{"no type", `<layer id="1" name="x" version="opset1"/>`},
		{"no name", `<layer id="1" type="Relu" version="opset1"/>`},
		{"no version", `<layer id="1" name="x" type="Relu"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseLayerParams(mustElement(t, tt.xml))
			require.Error(t, err)
			assert.True(t, IsMalformedIR(err))
		})
	}
}

func TestParsePortOutputRequiresPrecision(t *testing.T) {
	el := mustElement(t, `<port id="0"><dim>1</dim></port>`)
	_, err := parsePort(el, true)
	require.Error(t, err)
	assert.True(t, IsMalformedIR(err))

	// The same port is fine as an input.
	port, err := parsePort(el, false)
	require.NoError(t, err)
	assert.Equal(t, ir.Dynamic, port.Type)
}

func TestParsePortDynamicDim(t *testing.T) {
	el := mustElement(t, `<port id="0" precision="FP32"><dim>-1</dim><dim>4</dim></port>`)
	port, err := parsePort(el, true)
	require.NoError(t, err)
	assert.Equal(t, "[?,4]", port.Dims.String())

	bad := mustElement(t, `<port id="0" precision="FP32"><dim>-2</dim></port>`)
	_, err = parsePort(bad, true)
	assert.True(t, IsMalformedIR(err))
}

func TestRealPortIDMapping(t *testing.T) {
	p := layerParams{
		Name:    "n",
		Inputs:  []portData{{ID: 0}, {ID: 1}, {ID: 2}},
		Outputs: []portData{{ID: 3}, {ID: 4}},
	}

	// Declared ids map to dense positions regardless of numbering.
	idx, err := p.realInputPortID(2)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = p.realOutputPortID(3)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = p.realOutputPortID(4)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = p.realInputPortID(9)
	require.Error(t, err)
	assert.True(t, IsMalformedIR(err))
}

func TestErrorCarriesLayerContext(t *testing.T) {
	p := layerParams{ID: 7, Name: "conv1", Type: "Convolution"}
	_, err := p.realOutputPortID(99)
	require.Error(t, err)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, int64(7), e.NodeID)
	assert.Equal(t, "conv1", e.NodeName)
	assert.Equal(t, "Convolution", e.NodeType)
	assert.Contains(t, e.Error(), "MALFORMED_IR")
}
