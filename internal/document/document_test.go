package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<net name="demo" version="10">
	<layers>
		<layer id="0" type="Parameter"/>
		<layer id="1" type="Result"/>
	</layers>
	<edges>
		<edge from-layer="0" from-port="0" to-layer="1" to-port="0"/>
	</edges>
</net>`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "net", root.Name())

	name, ok := root.Attr("name")
	require.True(t, ok)
	assert.Equal(t, "demo", name)

	_, ok = root.Attr("missing")
	assert.False(t, ok)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("<net><unclosed></net>"))
	assert.Error(t, err)

	_, err = Parse([]byte("   "))
	assert.Error(t, err)
}

func TestChildNavigation(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)
	root := doc.Root()

	layers := root.Child("layers")
	require.NotNil(t, layers)
	assert.Len(t, layers.Children("layer"), 2)

	// Document order is preserved.
	first := layers.Children("layer")[0]
	typ, _ := first.Attr("type")
	assert.Equal(t, "Parameter", typ)

	assert.Nil(t, root.Child("nope"))
	assert.Empty(t, root.Children("nope"))
}

func TestNilReceiverSafety(t *testing.T) {
	var e *Element
	assert.Nil(t, e.Child("x"))
	assert.Nil(t, e.Children("x"))
	_, ok := e.Attr("x")
	assert.False(t, ok)
	assert.Nil(t, e.Attrs())
	assert.Equal(t, "", e.Text())

	// Chaining through a missing child stays nil-safe.
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)
	_, ok = doc.Root().Child("data").Attr("shape")
	assert.False(t, ok)
}

func TestAttrsAndText(t *testing.T) {
	doc, err := Parse([]byte(`<a x="1" y="2"><b>hello</b></a>`))
	require.NoError(t, err)

	attrs := doc.Root().Attrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, Attr{Name: "x", Value: "1"}, attrs[0])
	assert.Equal(t, Attr{Name: "y", Value: "2"}, attrs[1])

	assert.Equal(t, "hello", doc.Root().Child("b").Text())
}
