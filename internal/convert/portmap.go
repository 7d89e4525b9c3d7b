package convert

import (
	"sort"

	"github.com/calyx-ml/graphir/internal/document"
	"github.com/calyx-ml/graphir/internal/ir"
)

// extendedIOMaps merges the boundary positions recorded while parsing
// the body graph with a scan of the body's declared layers, so that
// declared-but-unconstructed parameters and results still resolve
// (with position -1) and nested loops compose.
func (d *deserializer) extendedIOMaps(p layerParams) (ioMaps, error) {
	body := d.node.Child("body")
	if body == nil {
		return ioMaps{}, newError(ErrCodeMalformedIR, "missing body part").forLayer(p)
	}

	ext := newIOMaps()
	for id, pos := range d.io.inputs {
		ext.inputs[id] = pos
	}
	for id, pos := range d.io.outputs {
		ext.outputs[id] = pos
	}

	layers := body.Child("layers")
	for _, layer := range layers.Children("layer") {
		typeName, _ := layer.Attr("type")
		if typeName != "Parameter" && typeName != "Result" {
			continue
		}
		id, err := requiredIntAttr(layer, "id")
		if err != nil {
			return ioMaps{}, err
		}
		if typeName == "Parameter" {
			if _, ok := ext.inputs[id]; !ok {
				ext.inputs[id] = -1
			}
		} else {
			if _, ok := ext.outputs[id]; !ok {
				ext.outputs[id] = -1
			}
		}
	}
	return ext, nil
}

func (m ioMaps) inputPosition(p layerParams, id int64) (int64, error) {
	pos, ok := m.inputs[id]
	if !ok {
		return 0, newError(ErrCodeMalformedIR, "port_map references internal layer %d which is not a body parameter", id).forLayer(p)
	}
	return pos, nil
}

func (m ioMaps) outputPosition(p layerParams, id int64) (int64, error) {
	pos, ok := m.outputs[id]
	if !ok {
		return 0, newError(ErrCodeMalformedIR, "port_map references internal layer %d which is not a body result", id).forLayer(p)
	}
	return pos, nil
}

// portMapEntries returns the port_map children of the given kind
// ordered by external_port_id, which need not appear consecutively in
// the document.
func (d *deserializer) portMapEntries(kind string) ([]*document.Element, error) {
	portMap := d.node.Child("port_map")
	entries := portMap.Children(kind)
	type keyed struct {
		ext int64
		el  *document.Element
	}
	ks := make([]keyed, 0, len(entries))
	for _, el := range entries {
		ext, err := requiredIntAttr(el, "external_port_id")
		if err != nil {
			return nil, err
		}
		ks = append(ks, keyed{ext: ext, el: el})
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].ext < ks[j].ext })
	out := make([]*document.Element, len(ks))
	for i, k := range ks {
		out[i] = k.el
	}
	return out, nil
}

// findBackEdge returns the source body-result layer id of the back edge
// terminating at the given body parameter, if one exists.
func (d *deserializer) findBackEdge(toLayer int64) (int64, bool, error) {
	backEdges := d.node.Child("back_edges")
	if backEdges == nil {
		return 0, false, nil
	}
	for _, edge := range backEdges.Children("edge") {
		to, err := requiredIntAttr(edge, "to-layer")
		if err != nil {
			return 0, false, err
		}
		if to != toLayer {
			continue
		}
		from, err := requiredIntAttr(edge, "from-layer")
		if err != nil {
			return 0, false, err
		}
		return from, true, nil
	}
	return 0, false, nil
}

// parseInputDescriptions translates the port_map input entries of a
// loop-construct layer into input binding descriptors.
func (d *deserializer) parseInputDescriptions(p layerParams) ([]ir.InputDescriptor, error) {
	ext, err := d.extendedIOMaps(p)
	if err != nil {
		return nil, err
	}
	entries, err := d.portMapEntries("input")
	if err != nil {
		return nil, err
	}

	var descs []ir.InputDescriptor
	for _, entry := range entries {
		extPort, err := requiredIntAttr(entry, "external_port_id")
		if err != nil {
			return nil, err
		}
		bodyParam, err := requiredIntAttr(entry, "internal_layer_id")
		if err != nil {
			return nil, err
		}

		if _, hasAxis := entry.Attr("axis"); hasAxis {
			axis, err := requiredIntAttr(entry, "axis")
			if err != nil {
				return nil, err
			}
			start, err := optionalIntAttr(entry, "start", 0)
			if err != nil {
				return nil, err
			}
			stride, err := optionalIntAttr(entry, "stride", 1)
			if err != nil {
				return nil, err
			}
			end, err := optionalIntAttr(entry, "end", -1)
			if err != nil {
				return nil, err
			}
			partSize, err := optionalIntAttr(entry, "part_size", 1)
			if err != nil {
				return nil, err
			}
			pos, err := ext.inputPosition(p, bodyParam)
			if err != nil {
				return nil, err
			}
			sliced := &ir.SlicedInput{
				Start:    start,
				Stride:   stride,
				PartSize: partSize,
				End:      end,
				Axis:     axis,
			}
			sliced.External = extPort
			sliced.BodyParam = pos
			descs = append(descs, sliced)
			continue
		}

		// No axis: look for a back edge ending at this body parameter.
		from, found, err := d.findBackEdge(bodyParam)
		if err != nil {
			return nil, err
		}
		if found {
			inPos, err := ext.inputPosition(p, bodyParam)
			if err != nil {
				return nil, err
			}
			outPos, err := ext.outputPosition(p, from)
			if err != nil {
				return nil, err
			}
			merged := &ir.MergedInput{BodyRes: outPos}
			merged.External = extPort
			merged.BodyParam = inPos
			descs = append(descs, merged)
			continue
		}

		// A negative external port with no back edge means the body
		// parameter is internal-only: no descriptor.
		if extPort >= 0 {
			pos, err := ext.inputPosition(p, bodyParam)
			if err != nil {
				return nil, err
			}
			descs = append(descs, ir.NewInvariantInput(extPort, pos))
		}
	}
	return descs, nil
}

// parseOutputDescriptions translates the port_map output entries.
// Output positions count emitted entries only; body-internal
// results (negative external port) are skipped entirely.
func (d *deserializer) parseOutputDescriptions(p layerParams) ([]ir.OutputDescriptor, error) {
	ext, err := d.extendedIOMaps(p)
	if err != nil {
		return nil, err
	}
	entries, err := d.portMapEntries("output")
	if err != nil {
		return nil, err
	}

	var descs []ir.OutputDescriptor
	var position int64
	for _, entry := range entries {
		extPort, err := requiredIntAttr(entry, "external_port_id")
		if err != nil {
			return nil, err
		}
		if extPort < 0 {
			continue
		}
		bodyResult, err := requiredIntAttr(entry, "internal_layer_id")
		if err != nil {
			return nil, err
		}
		pos, err := ext.outputPosition(p, bodyResult)
		if err != nil {
			return nil, err
		}

		if _, hasAxis := entry.Attr("axis"); hasAxis {
			axis, err := requiredIntAttr(entry, "axis")
			if err != nil {
				return nil, err
			}
			start, err := optionalIntAttr(entry, "start", 0)
			if err != nil {
				return nil, err
			}
			stride, err := optionalIntAttr(entry, "stride", 1)
			if err != nil {
				return nil, err
			}
			end, err := optionalIntAttr(entry, "end", -1)
			if err != nil {
				return nil, err
			}
			partSize, err := optionalIntAttr(entry, "part_size", 1)
			if err != nil {
				return nil, err
			}
			concat := &ir.ConcatOutput{
				Start:    start,
				Stride:   stride,
				PartSize: partSize,
				End:      end,
				Axis:     axis,
			}
			concat.Pos = position
			concat.BodyRes = pos
			descs = append(descs, concat)
		} else {
			descs = append(descs, ir.NewFinalOutput(position, pos))
		}
		position++
	}
	return descs, nil
}

// parseSpecialPorts reads the purpose annotations: "current_iteration"
// on an input marks the iteration-counter parameter,
// "execution_condition" on an output marks the continuation condition.
func (d *deserializer) parseSpecialPorts(p layerParams) (ir.SpecialPorts, error) {
	sp := ir.NoSpecialPorts()
	ext, err := d.extendedIOMaps(p)
	if err != nil {
		return sp, err
	}
	if len(ext.inputs) == 0 && len(ext.outputs) == 0 {
		return sp, newError(ErrCodeMalformedIR, "no parameters or results found in body graph").forLayer(p)
	}

	inputs, err := d.portMapEntries("input")
	if err != nil {
		return sp, err
	}
	for _, entry := range inputs {
		purpose, _ := entry.Attr("purpose")
		if purpose != "current_iteration" {
			continue
		}
		id, err := requiredIntAttr(entry, "internal_layer_id")
		if err != nil {
			return sp, err
		}
		pos, err := ext.inputPosition(p, id)
		if err != nil {
			return sp, err
		}
		sp.CurrentIteration = pos
	}

	outputs, err := d.portMapEntries("output")
	if err != nil {
		return sp, err
	}
	for _, entry := range outputs {
		purpose, _ := entry.Attr("purpose")
		if purpose != "execution_condition" {
			continue
		}
		id, err := requiredIntAttr(entry, "internal_layer_id")
		if err != nil {
			return sp, err
		}
		pos, err := ext.outputPosition(p, id)
		if err != nil {
			return sp, err
		}
		sp.ExecutionCondition = pos
	}
	return sp, nil
}
