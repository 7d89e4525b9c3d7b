package convert

import (
	"strconv"
	"strings"

	"github.com/calyx-ml/graphir/internal/document"
	"github.com/calyx-ml/graphir/internal/ir"
	"github.com/calyx-ml/graphir/internal/opset"
)

// deserializer drives conversion of one layer (or one graph scope): it
// populates operation attribute slots from the layer's data section,
// translates port maps and recursively builds nested body graphs. The
// variable map is shared across the whole top-level conversion; the
// boundary io maps are local to one deserializer.
type deserializer struct {
	node         *document.Element
	weights      *ir.Weights
	opsets       map[string]*opset.OpSet
	variables    map[string]*ir.Variable
	io           ioMaps
	useFramework bool
}

// ioMaps records, per graph scope, the dense parameter/result position
// of each declared layer id. -1 marks a declared but unconstructed
// boundary layer.
type ioMaps struct {
	inputs  map[int64]int64
	outputs map[int64]int64
}

func newIOMaps() ioMaps {
	return ioMaps{inputs: make(map[int64]int64), outputs: make(map[int64]int64)}
}

func (d *deserializer) child(node *document.Element) *deserializer {
	return &deserializer{
		node:         node,
		weights:      d.weights,
		opsets:       d.opsets,
		variables:    d.variables,
		io:           newIOMaps(),
		useFramework: d.useFramework,
	}
}

func (d *deserializer) data() *document.Element {
	return d.node.Child("data")
}

func (d *deserializer) strAttr(name string) (string, bool) {
	return d.data().Attr(name)
}

// visitAttributes populates every attribute slot the operation exposes.
func (d *deserializer) visitAttributes(op ir.Operation, p layerParams) error {
	for _, field := range op.AttrFields() {
		if err := d.visitAttr(p, field.Name, field.Slot); err != nil {
			return err
		}
	}
	return nil
}

// visitAttr populates one typed slot from the attribute's textual
// representation, or leaves it untouched if the attribute is absent.
// The slot kinds form a closed set; an unknown kind is a
// registry/visitor contract violation.
func (d *deserializer) visitAttr(p layerParams, name string, slot any) error {
	switch s := slot.(type) {
	case *string:
		if raw, ok := d.strAttr(name); ok {
			*s = raw
		}
	case *bool:
		raw, ok := d.strAttr(name)
		if !ok {
			return nil
		}
		switch strings.ToLower(raw) {
		case "true", "1":
			*s = true
		case "false", "0":
			*s = false
		}
		// Any other text: attribute not recognized, slot left unset.
	case *int64:
		raw, ok := d.strAttr(name)
		if !ok {
			return nil
		}
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return newError(ErrCodeMalformedIR, "attribute %q is not an integer: %q", name, raw).forLayer(p)
		}
		*s = v
	case *float64:
		raw, ok := d.strAttr(name)
		if !ok {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return newError(ErrCodeMalformedIR, "attribute %q is not a float: %q", name, raw).forLayer(p)
		}
		*s = v
	case *[]string:
		raw, ok := d.strAttr(name)
		if !ok {
			return nil
		}
		items, err := splitList(raw)
		if err != nil {
			return err
		}
		*s = items
	case *[]int32:
		vals, ok, err := d.intListAttr(p, name)
		if err != nil || !ok {
			return err
		}
		out := make([]int32, len(vals))
		for i, v := range vals {
			out[i] = int32(v)
		}
		*s = out
	case *[]int64:
		vals, ok, err := d.intListAttr(p, name)
		if err != nil || !ok {
			return err
		}
		*s = vals
	case *[]float64:
		raw, ok := d.strAttr(name)
		if !ok {
			return nil
		}
		vals, err := parseFloat64List(raw)
		if err != nil {
			return err
		}
		*s = vals
	case *ir.PartialShape:
		vals, ok, err := d.intListAttr(p, name)
		if err != nil || !ok {
			return err
		}
		*s = ir.NewPartialShape(vals)
	case *ir.Shape:
		vals, ok, err := d.intListAttr(p, name)
		if err != nil || !ok {
			return err
		}
		*s = ir.Shape(vals)
	case *ir.Strides:
		vals, ok, err := d.intListAttr(p, name)
		if err != nil || !ok {
			return err
		}
		*s = ir.Strides(vals)
	case *ir.AxisSet:
		vals, ok, err := d.intListAttr(p, name)
		if err != nil || !ok {
			return err
		}
		*s = ir.AxisSet(vals)
	case *ir.CoordinateDiff:
		vals, ok, err := d.intListAttr(p, name)
		if err != nil || !ok {
			return err
		}
		*s = ir.CoordinateDiff(vals)
	case *ir.ElementType:
		raw, ok := d.strAttr(name)
		if !ok {
			return nil
		}
		et, err := ir.ParseElementType(raw)
		if err != nil {
			return newError(ErrCodeMalformedIR, "attribute %q: %v", name, err).forLayer(p)
		}
		*s = et
	case *[]ir.ElementType:
		raw, ok := d.strAttr(name)
		if !ok {
			return nil
		}
		items, err := splitList(raw)
		if err != nil {
			return err
		}
		out := make([]ir.ElementType, len(items))
		for i, it := range items {
			et, err := ir.ParseElementType(it)
			if err != nil {
				return newError(ErrCodeMalformedIR, "attribute %q: %v", name, err).forLayer(p)
			}
			out[i] = et
		}
		*s = out
	case *opset.TopKMode:
		raw, ok := d.strAttr(name)
		if !ok {
			return nil
		}
		m, err := opset.ParseTopKMode(raw)
		if err != nil {
			return newError(ErrCodeMalformedIR, "attribute %q: %v", name, err).forLayer(p)
		}
		*s = m
	case *opset.TopKSortType:
		raw, ok := d.strAttr(name)
		if !ok {
			return nil
		}
		st, err := opset.ParseTopKSortType(raw)
		if err != nil {
			return newError(ErrCodeMalformedIR, "attribute %q: %v", name, err).forLayer(p)
		}
		*s = st
	case **ir.Graph:
		g, err := d.parseGraphSlot(name)
		if err != nil {
			return err
		}
		*s = g
	case *ir.Blob:
		return d.visitBlob(p, name, s)
	case **ir.Variable:
		raw, ok := d.strAttr(name)
		if !ok {
			return nil
		}
		v, exists := d.variables[raw]
		if !exists {
			v = &ir.Variable{ID: raw, Shape: ir.DynamicShape(), Type: ir.Dynamic}
			d.variables[raw] = v
		}
		*s = v
	case *opset.FrameworkAttrs:
		bag := opset.FrameworkAttrs{
			TypeName:  p.Type,
			OpsetName: p.Version,
			Attrs:     make(map[string]string),
		}
		if dn := d.data(); dn != nil {
			for _, attr := range dn.Attrs() {
				bag.Attrs[attr.Name] = attr.Value
			}
		}
		*s = bag
	case *[]ir.InputDescriptor:
		if d.node.Child("port_map") == nil {
			return nil
		}
		descs, err := d.parseInputDescriptions(p)
		if err != nil {
			return err
		}
		*s = descs
	case *[]ir.OutputDescriptor:
		if d.node.Child("port_map") == nil {
			return nil
		}
		descs, err := d.parseOutputDescriptions(p)
		if err != nil {
			return err
		}
		*s = descs
	case *ir.SpecialPorts:
		if d.node.Child("port_map") == nil {
			return nil
		}
		sp, err := d.parseSpecialPorts(p)
		if err != nil {
			return err
		}
		*s = sp
	default:
		return newError(ErrCodeContractViolation, "no attribute handler for %q (slot %T)", name, slot).forLayer(p)
	}
	return nil
}

func (d *deserializer) intListAttr(p layerParams, name string) ([]int64, bool, error) {
	raw, ok := d.strAttr(name)
	if !ok {
		return nil, false, nil
	}
	vals, err := parseInt64List(raw)
	if err != nil {
		return nil, false, err
	}
	return vals, true, nil
}

// parseGraphSlot resolves a nested sub-graph reference. Two roles are
// recognized: "body" parses the layer's embedded body section, "net"
// parses relative to the element itself (the document root for the
// top-level call).
func (d *deserializer) parseGraphSlot(name string) (*ir.Graph, error) {
	switch name {
	case "body":
		body := d.node.Child("body")
		if body == nil {
			return nil, newError(ErrCodeMalformedIR, "layer has no body")
		}
		return d.parseGraph(body)
	case "net":
		return d.parseGraph(d.node)
	}
	return nil, newError(ErrCodeMalformedIR, "not recognized nested sub-graph reference: %q", name)
}

// visitBlob resolves an externally stored buffer slot: either the
// attribute text itself is the payload, or a constant layer references
// a window of the shared weight store.
func (d *deserializer) visitBlob(p layerParams, name string, blob *ir.Blob) error {
	dn := d.data()
	if dn == nil {
		return newError(ErrCodeMalformedIR, "no attributes defined for %s op", p.Type).forLayer(p)
	}

	if raw, ok := dn.Attr(name); ok {
		blob.Data = []byte(raw)
		blob.Shared = false
		return nil
	}

	if name != "value" || (p.Type != "Const" && p.Type != "Constant") {
		return nil
	}

	offset, err := requiredIntAttr(dn, "offset")
	if err != nil {
		return err
	}
	size, err := requiredIntAttr(dn, "size")
	if err != nil {
		return err
	}
	rawType, ok := dn.Attr("element_type")
	if !ok {
		return nil
	}
	et, err := ir.ParseElementType(rawType)
	if err != nil {
		return newError(ErrCodeMalformedIR, "constant element_type: %v", err).forLayer(p)
	}
	rawShape, ok := dn.Attr("shape")
	if !ok {
		return nil
	}
	dims, err := parseInt64List(rawShape)
	if err != nil {
		return err
	}

	length := d.weights.ByteLength()
	if length == 0 {
		return newError(ErrCodeInconsistentWeights, "empty weight data: constant store missing or empty").forLayer(p)
	}
	if offset < 0 || size < 0 || size > length || offset > length-size {
		return newError(ErrCodeInconsistentWeights, "constant data at offset %d, size %d exceeds weight store length %d", offset, size, length).forLayer(p)
	}
	count := int64(1)
	for _, dim := range dims {
		count *= dim
	}
	needed := (count*int64(et.BitWidth()) + 7) / 8
	if count < 0 || size < needed {
		return newError(ErrCodeInconsistentWeights, "attribute and shape size are inconsistent for %s op: declared %d bytes, tensor needs %d", p.Type, size, needed).forLayer(p)
	}

	view, err := d.weights.View(offset, size)
	if err != nil {
		return newError(ErrCodeInconsistentWeights, "constant data view: %v", err).forLayer(p)
	}
	blob.Data = view
	blob.Shared = true
	return nil
}
