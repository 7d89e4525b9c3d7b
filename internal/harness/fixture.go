package harness

import (
	"fmt"
	"sort"
	"strings"
)

// LayerSpec declares one layer of a fixture document.
type LayerSpec struct {
	ID      int64
	Type    string
	Version string
	Name    string
	Data    map[string]string // data section attributes
	In      []PortSpec
	Out     []PortSpec
	Extra   string // raw sections: body, port_map, back_edges
}

// PortSpec declares one port of a fixture layer.
type PortSpec struct {
	ID        int64
	Dims      []int64
	Precision string // required on output ports
	Names     string // comma-separated tensor names
}

// EdgeSpec declares one edge of a fixture document.
type EdgeSpec struct {
	FromLayer, FromPort, ToLayer, ToPort int64
}

// ModelXML renders a fixture IR document. Data attributes are emitted
// in sorted key order so fixtures are byte-stable.
func ModelXML(name string, layers []LayerSpec, edges []EdgeSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<net name=%q version=\"10\">\n", name)
	b.WriteString("  <layers>\n")
	for _, l := range layers {
		writeLayer(&b, l)
	}
	b.WriteString("  </layers>\n")
	b.WriteString("  <edges>\n")
	for _, e := range edges {
		fmt.Fprintf(&b, "    <edge from-layer=\"%d\" from-port=\"%d\" to-layer=\"%d\" to-port=\"%d\"/>\n",
			e.FromLayer, e.FromPort, e.ToLayer, e.ToPort)
	}
	b.WriteString("  </edges>\n")
	b.WriteString("</net>\n")
	return b.String()
}

func writeLayer(b *strings.Builder, l LayerSpec) {
	fmt.Fprintf(b, "    <layer id=\"%d\" name=%q type=%q version=%q>\n", l.ID, l.Name, l.Type, l.Version)
	if len(l.Data) > 0 {
		keys := make([]string, 0, len(l.Data))
		for k := range l.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("      <data")
		for _, k := range keys {
			fmt.Fprintf(b, " %s=%q", k, l.Data[k])
		}
		b.WriteString("/>\n")
	}
	if len(l.In) > 0 {
		b.WriteString("      <input>\n")
		for _, p := range l.In {
			writePort(b, p)
		}
		b.WriteString("      </input>\n")
	}
	if len(l.Out) > 0 {
		b.WriteString("      <output>\n")
		for _, p := range l.Out {
			writePort(b, p)
		}
		b.WriteString("      </output>\n")
	}
	if l.Extra != "" {
		b.WriteString(l.Extra)
	}
	b.WriteString("    </layer>\n")
}

func writePort(b *strings.Builder, p PortSpec) {
	fmt.Fprintf(b, "        <port id=\"%d\"", p.ID)
	if p.Precision != "" {
		fmt.Fprintf(b, " precision=%q", p.Precision)
	}
	if p.Names != "" {
		fmt.Fprintf(b, " names=%q", p.Names)
	}
	b.WriteString(">")
	for _, d := range p.Dims {
		fmt.Fprintf(b, "<dim>%d</dim>", d)
	}
	b.WriteString("</port>\n")
}

// SimpleModelXML is the shared minimal fixture: Parameter -> Relu ->
// Result over a static [1, 3] f32 tensor.
func SimpleModelXML() string {
	return ModelXML("simple", []LayerSpec{
		{
			ID: 0, Type: "Parameter", Version: "opset1", Name: "input",
			Data: map[string]string{"shape": "1,3", "element_type": "f32"},
			Out:  []PortSpec{{ID: 0, Dims: []int64{1, 3}, Precision: "FP32", Names: "input"}},
		},
		{
			ID: 1, Type: "Relu", Version: "opset1", Name: "activation",
			In:  []PortSpec{{ID: 0, Dims: []int64{1, 3}}},
			Out: []PortSpec{{ID: 1, Dims: []int64{1, 3}, Precision: "FP32", Names: "activation"}},
		},
		{
			ID: 2, Type: "Result", Version: "opset1", Name: "output",
			In: []PortSpec{{ID: 0, Dims: []int64{1, 3}}},
		},
	}, []EdgeSpec{
		{FromLayer: 0, FromPort: 0, ToLayer: 1, ToPort: 0},
		{FromLayer: 1, FromPort: 1, ToLayer: 2, ToPort: 0},
	})
}
