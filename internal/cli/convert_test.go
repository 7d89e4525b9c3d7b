package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyx-ml/graphir/internal/store"
)

func TestConvertTextOutput(t *testing.T) {
	path := writeModel(t, sampleModelXML)

	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Graph:      demo")
	assert.Contains(t, output, "Nodes:      3")
	assert.Contains(t, output, "Opsets:     opset1=3")
}

func TestConvertJSONOutput(t *testing.T) {
	path := writeModel(t, sampleModelXML)

	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   GraphSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "demo", resp.Data.Name)
	assert.Equal(t, 3, resp.Data.NodeCount)
	assert.Equal(t, []string{"in"}, resp.Data.Parameters)
	assert.Equal(t, []string{"out"}, resp.Data.Results)
}

func TestConvertMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.xml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E005")
}

func TestConvertUnparseableDocument(t *testing.T) {
	path := writeModel(t, "<net version=10>")

	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "MALFORMED_IR")
}

const unknownOpModelXML = `
<net name="demo" version="10">
	<layers>
		<layer id="0" name="in" type="Parameter" version="opset1">
			<data shape="1,3" element_type="f32"/>
			<output><port id="0" precision="FP32"><dim>1</dim><dim>3</dim></port></output>
		</layer>
		<layer id="1" name="mystery" type="SwishPlus" version="vendor_opset">
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

func TestConvertUnsupportedOperation(t *testing.T) {
	path := writeModel(t, unknownOpModelXML)

	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNSUPPORTED_OPERATION", resp.Error.Code)
}

func TestConvertFallbackFlag(t *testing.T) {
	path := writeModel(t, unknownOpModelXML)

	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--fallback"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Data GraphSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.NodeCount)
}

func TestConvertWithWeights(t *testing.T) {
	path := writeModel(t, `
	<net name="weights" version="10">
		<layers>
			<layer id="0" name="w" type="Const" version="opset1">
				<data element_type="f32" shape="2,2" offset="0" size="16"/>
				<output><port id="0" precision="FP32"><dim>2</dim><dim>2</dim></port></output>
			</layer>
			<layer id="1" name="out" type="Result" version="opset1">
				<input><port id="0"><dim>2</dim><dim>2</dim></port></input>
			</layer>
		</layers>
		<edges>
			<edge from-layer="0" from-port="0" to-layer="1" to-port="0"/>
		</edges>
	</net>`)
	weightsPath := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(weightsPath, make([]byte, 16), 0644))

	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "-w", weightsPath})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Nodes:      2")
}

func TestConvertInconsistentWeights(t *testing.T) {
	path := writeModel(t, `
	<net name="weights" version="10">
		<layers>
			<layer id="0" name="w" type="Const" version="opset1">
				<data element_type="f32" shape="2,2" offset="0" size="16"/>
				<output><port id="0" precision="FP32"><dim>2</dim><dim>2</dim></port></output>
			</layer>
			<layer id="1" name="out" type="Result" version="opset1">
				<input><port id="0"><dim>2</dim><dim>2</dim></port></input>
			</layer>
		</layers>
		<edges>
			<edge from-layer="0" from-port="0" to-layer="1" to-port="0"/>
		</edges>
	</net>`)
	weightsPath := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(weightsPath, make([]byte, 4), 0644))

	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "-w", weightsPath})

	err := cmd.Execute()
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INCONSISTENT_WEIGHTS", resp.Error.Code)
}

func TestConvertWithExtensionOpsets(t *testing.T) {
	path := writeModel(t, `
	<net name="extended" version="10">
		<layers>
			<layer id="0" name="in" type="Parameter" version="opset1">
				<data shape="1,3" element_type="f32"/>
				<output><port id="0" precision="FP32"><dim>1</dim><dim>3</dim></port></output>
			</layer>
			<layer id="1" name="det" type="FancyDetector" version="vendorx">
				<input><port id="0"><dim>1</dim><dim>3</dim></port></input>
				<output><port id="1" precision="FP32"><dim>1</dim><dim>4</dim></port></output>
			</layer>
			<layer id="2" name="out" type="Result" version="opset1">
				<input><port id="0"><dim>1</dim><dim>4</dim></port></input>
			</layer>
		</layers>
		<edges>
			<edge from-layer="0" from-port="0" to-layer="1" to-port="0"/>
			<edge from-layer="1" from-port="1" to-layer="2" to-port="0"/>
		</edges>
	</net>`)

	opsetsDir := t.TempDir()
	writeManifest(t, opsetsDir, "vendor.cue", `
package manifests

opset: "vendorx": ops: "FancyDetector": {outputs: 1}
`)

	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--opsets", opsetsDir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Nodes:      3")
	assert.Contains(t, buf.String(), "vendorx=1")
}

func TestConvertRecordsCache(t *testing.T) {
	path := writeModel(t, sampleModelXML)
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--cache", cachePath})

	err := cmd.Execute()
	require.NoError(t, err)

	st, err := store.Open(cachePath)
	require.NoError(t, err)
	defer st.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rec, err := st.GetByDocHash(context.Background(), store.HashDocument(data))
	require.NoError(t, err)
	assert.Equal(t, "demo", rec.GraphName)
	assert.Equal(t, int64(10), rec.IRVersion)
	assert.Equal(t, 3, rec.NodeCount)
	assert.Equal(t, 1, rec.ParamCount)
	assert.Equal(t, 1, rec.ResultCount)
	assert.Equal(t, "opset1=3", rec.OpsetCensus)
}
