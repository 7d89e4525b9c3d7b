package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModelXML = `
<net name="demo" version="10">
	<layers>
		<layer id="0" name="in" type="Parameter" version="opset1">
			<data shape="1,3" element_type="f32"/>
			<output><port id="0" precision="FP32"><dim>1</dim><dim>3</dim></port></output>
		</layer>
		<layer id="1" name="act" type="Relu" version="opset1">
			<input><port id="0"><dim>1</dim><dim>3</dim></port></input>
			<output><port id="1" precision="FP32"><dim>1</dim><dim>3</dim></port></output>
		</layer>
		<layer id="2" name="out" type="Result" version="opset1">
			<input><port id="0"><dim>1</dim><dim>3</dim></port></input>
		</layer>
	</layers>
	<edges>
		<edge from-layer="0" from-port="0" to-layer="1" to-port="0"/>
		<edge from-layer="1" from-port="1" to-layer="2" to-port="0"/>
	</edges>
</net>`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateValidModel(t *testing.T) {
	path := writeModel(t, sampleModelXML)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "OK: 3 layer(s), 2 edge(s)")
}

func TestValidateValidModelJSON(t *testing.T) {
	path := writeModel(t, sampleModelXML)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 3, resp.Data.Layers)
	assert.Equal(t, 2, resp.Data.Edges)
	assert.Empty(t, resp.Data.Findings)
}

func TestValidateCollectsAllFindings(t *testing.T) {
	// Duplicate id, a layer without a name, and an edge endpoint that
	// references an undeclared layer: all three reported at once.
	path := writeModel(t, `
	<net name="broken" version="10">
		<layers>
			<layer id="0" name="a" type="Parameter" version="opset1"/>
			<layer id="0" name="b" type="Relu" version="opset1"/>
			<layer id="1" type="Result" version="opset1"/>
		</layers>
		<edges>
			<edge from-layer="9" from-port="0" to-layer="1" to-port="0"/>
		</edges>
	</net>`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data ValidationReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Findings, 3)
	assert.Contains(t, resp.Data.Findings[0], "declared twice")
	assert.Contains(t, resp.Data.Findings[1], "no name attribute")
	assert.Contains(t, resp.Data.Findings[2], "undeclared layer 9")
}

func TestValidateOldVersion(t *testing.T) {
	path := writeModel(t, `<net name="old" version="7"><layers/></net>`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "INVALID")
	assert.Contains(t, buf.String(), "minimum is 10")
}

func TestValidateUnparseableDocument(t *testing.T) {
	path := writeModel(t, `<net name="truncated" version="10">`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "MALFORMED_IR")
}

func TestValidateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.xml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E005")
}
