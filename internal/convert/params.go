package convert

import (
	"strconv"
	"strings"

	"github.com/calyx-ml/graphir/internal/document"
	"github.com/calyx-ml/graphir/internal/ir"
)

// splitList splits a comma-separated attribute value. A backslash
// immediately before a comma escapes it so list items may themselves
// contain commas. An empty element between two commas is ambiguous and
// rejected; a single trailing comma is tolerated.
func splitList(raw string) ([]string, error) {
	var items []string
	var cur strings.Builder
	escaped := false
	for _, r := range raw {
		switch {
		case escaped && r == ',':
			cur.WriteRune(',')
			escaped = false
		case escaped:
			cur.WriteRune('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			items = append(items, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteRune('\\')
	}
	items = append(items, cur.String())
	// Tolerate one trailing separator.
	if len(items) > 1 && items[len(items)-1] == "" {
		items = items[:len(items)-1]
	}
	for _, it := range items {
		if it == "" {
			return nil, newError(ErrCodeMalformedIR, "cannot parse list attribute: %q is incorrect", raw)
		}
	}
	return items, nil
}

func parseInt64List(raw string) ([]int64, error) {
	items, err := splitList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(items))
	for i, it := range items {
		v, err := strconv.ParseInt(strings.TrimSpace(it), 10, 64)
		if err != nil {
			return nil, newError(ErrCodeMalformedIR, "cannot parse integer list element %q in %q", it, raw)
		}
		out[i] = v
	}
	return out, nil
}

func parseFloat64List(raw string) ([]float64, error) {
	items, err := splitList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, it := range items {
		v, err := strconv.ParseFloat(strings.TrimSpace(it), 64)
		if err != nil {
			return nil, newError(ErrCodeMalformedIR, "cannot parse float list element %q in %q", it, raw)
		}
		out[i] = v
	}
	return out, nil
}

// requiredIntAttr reads an integer attribute that must be present.
func requiredIntAttr(el *document.Element, name string) (int64, error) {
	raw, ok := el.Attr(name)
	if !ok {
		return 0, newError(ErrCodeMalformedIR, "missing required attribute %q on <%s>", name, el.Name())
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, newError(ErrCodeMalformedIR, "attribute %q on <%s> is not an integer: %q", name, el.Name(), raw)
	}
	return v, nil
}

// optionalIntAttr reads an integer attribute, falling back to def.
func optionalIntAttr(el *document.Element, name string, def int64) (int64, error) {
	raw, ok := el.Attr(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, newError(ErrCodeMalformedIR, "attribute %q on <%s> is not an integer: %q", name, el.Name(), raw)
	}
	return v, nil
}

// portData is one declared port of a layer. ID is the declared port id
// used by edge records; it need not be contiguous or start at zero.
type portData struct {
	ID    int64
	Dims  ir.PartialShape
	Type  ir.ElementType
	Names []string
}

// layerParams is the generic declaration of one layer, shared by every
// operation kind.
type layerParams struct {
	ID      int64
	Type    string
	Version string
	Name    string
	Inputs  []portData
	Outputs []portData
}

// realInputPortID maps a declared input port id to the dense positional
// index used for wiring. A declared id absent from the port list is a
// malformed document.
func (p *layerParams) realInputPortID(id int64) (int, error) {
	for i, port := range p.Inputs {
		if port.ID == id {
			return i, nil
		}
	}
	return 0, newError(ErrCodeMalformedIR, "cannot find input port with id %d in layer %q", id, p.Name).forLayer(*p)
}

// realOutputPortID maps a declared output port id to the dense
// positional index.
func (p *layerParams) realOutputPortID(id int64) (int, error) {
	for i, port := range p.Outputs {
		if port.ID == id {
			return i, nil
		}
	}
	return 0, newError(ErrCodeMalformedIR, "cannot find output port with id %d in layer %q", id, p.Name).forLayer(*p)
}

func parsePort(el *document.Element, output bool) (portData, error) {
	var port portData
	id, err := requiredIntAttr(el, "id")
	if err != nil {
		return port, err
	}
	port.ID = id

	for _, dimEl := range el.Children("dim") {
		raw := strings.TrimSpace(dimEl.Text())
		dim, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || dim < -1 {
			return port, newError(ErrCodeMalformedIR, "dimension (%q) in port %d must be an integer greater or equal to -1", raw, id)
		}
		port.Dims = append(port.Dims, ir.Dimension(dim))
	}

	// Input ports carry no precision.
	port.Type = ir.Dynamic
	if output {
		pre, ok := el.Attr("precision")
		if !ok {
			return port, newError(ErrCodeMalformedIR, "missing precision on output port %d", id)
		}
		et, err := ir.ParseElementType(pre)
		if err != nil {
			return port, newError(ErrCodeMalformedIR, "output port %d: %v", id, err)
		}
		port.Type = et
	}

	if raw, ok := el.Attr("names"); ok {
		names, err := splitList(raw)
		if err != nil {
			return port, err
		}
		port.Names = names
	}
	return port, nil
}

// parseLayerParams reads the generic declaration of one layer element.
func parseLayerParams(el *document.Element) (layerParams, error) {
	var p layerParams

	id, err := requiredIntAttr(el, "id")
	if err != nil {
		return p, err
	}
	p.ID = id

	for attr, dst := range map[string]*string{"type": &p.Type, "version": &p.Version, "name": &p.Name} {
		v, ok := el.Attr(attr)
		if !ok {
			return p, newError(ErrCodeMalformedIR, "missing required attribute %q on layer %d", attr, id)
		}
		*dst = v
	}

	if out := el.Child("output"); out != nil {
		for _, portEl := range out.Children("port") {
			port, err := parsePort(portEl, true)
			if err != nil {
				return p, err
			}
			p.Outputs = append(p.Outputs, port)
		}
	}
	if in := el.Child("input"); in != nil {
		for _, portEl := range in.Children("port") {
			port, err := parsePort(portEl, false)
			if err != nil {
				return p, err
			}
			p.Inputs = append(p.Inputs, port)
		}
	}
	return p, nil
}
