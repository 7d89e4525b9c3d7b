package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectTextOutput(t *testing.T) {
	path := writeModel(t, sampleModelXML)

	buf := &bytes.Buffer{}
	cmd := NewInspectCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Graph:  demo")
	assert.Contains(t, output, "Layers: 3")
	assert.Contains(t, output, "Edges:  2")
	assert.Contains(t, output, "Parameter")
	assert.Contains(t, output, "opset1")
}

func TestInspectJSONCensus(t *testing.T) {
	path := writeModel(t, `
	<net name="mixed" version="10">
		<layers>
			<layer id="0" name="a" type="Relu" version="opset1"/>
			<layer id="1" name="b" type="Relu" version="opset1"/>
			<layer id="2" name="c" type="Relu" version="opset4"/>
			<layer id="3" name="d" type="Add" version="opset1"/>
		</layers>
	</net>`)

	buf := &bytes.Buffer{}
	cmd := NewInspectCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   InspectReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Layers)
	assert.Equal(t, 0, resp.Data.Edges)

	// Census rows sorted by type, then version.
	require.Len(t, resp.Data.Census, 3)
	assert.Equal(t, LayerCensus{Type: "Add", Version: "opset1", Count: 1}, resp.Data.Census[0])
	assert.Equal(t, LayerCensus{Type: "Relu", Version: "opset1", Count: 2}, resp.Data.Census[1])
	assert.Equal(t, LayerCensus{Type: "Relu", Version: "opset4", Count: 1}, resp.Data.Census[2])
}

func TestInspectForeignRoot(t *testing.T) {
	path := writeModel(t, `<model version="10"/>`)

	buf := &bytes.Buffer{}
	cmd := NewInspectCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "net element")
}
