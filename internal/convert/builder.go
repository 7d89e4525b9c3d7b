package convert

import (
	"log/slog"

	"github.com/calyx-ml/graphir/internal/document"
	"github.com/calyx-ml/graphir/internal/ir"
	"github.com/calyx-ml/graphir/internal/opset"
)

// Operations introduced into a later registry snapshot that may still
// appear tagged "experimental" or "extension"; they resolve against
// opset6.
var experimentalOpsAddedToOpset = map[string]struct{}{
	"ExperimentalDetectronDetectionOutput":              {},
	"ExperimentalDetectronGenerateProposalsSingleImage": {},
	"ExperimentalDetectronPriorGridGenerator":           {},
	"ExperimentalDetectronROIFeatureExtractor":          {},
	"ExperimentalDetectronTopKROIs":                     {},
	"GRUCell":                                           {},
	"RNNCell":                                           {},
	"Proposal":                                          {},
}

// Operations that gained their registry entry one snapshot after their
// declared minimum version.
var opsMissingInOpset1 = map[string]struct{}{
	"MVN":        {},
	"ROIPooling": {},
	"ReorgYolo":  {},
}

type layerRecord struct {
	el     *document.Element
	params layerParams
}

type edgeRecord struct {
	fromLayer int64
	fromPort  int64
	toPort    int64
}

// parseGraph converts one graph scope: Scan declared layers and edges,
// Order them by depth-first traversal from the terminals, Construct
// each node through the registry, and Assemble the boundary lists.
func (d *deserializer) parseGraph(root *document.Element) (*ir.Graph, error) {
	layersEl := root.Child("layers")
	if layersEl == nil {
		return nil, newError(ErrCodeMalformedIR, "missing layers section")
	}

	// Scan: declared layers, duplicate-name check. Result nodes may
	// legitimately repeat a name (they mirror their producer).
	records := make(map[int64]layerRecord)
	seenNames := make(map[string]struct{})
	var terminals []int64
	for _, layerEl := range layersEl.Children("layer") {
		params, err := parseLayerParams(layerEl)
		if err != nil {
			return nil, err
		}
		if _, dup := seenNames[params.Name]; dup && params.Type != "Result" {
			return nil, newError(ErrCodeMalformedIR, "invalid IR: layer name %q is not unique", params.Name).forLayer(params)
		}
		seenNames[params.Name] = struct{}{}
		if _, exists := records[params.ID]; exists {
			return nil, newError(ErrCodeMalformedIR, "invalid IR: layer id %d is declared twice", params.ID).forLayer(params)
		}
		records[params.ID] = layerRecord{el: layerEl, params: params}
		if params.Type == "Result" || params.Type == "Assign" {
			terminals = append(terminals, params.ID)
		}
	}

	// Scan: edges keyed by consumer.
	edgesByTo := make(map[int64][]edgeRecord)
	if edgesEl := root.Child("edges"); edgesEl != nil {
		for _, edgeEl := range edgesEl.Children("edge") {
			fromLayer, err := requiredIntAttr(edgeEl, "from-layer")
			if err != nil {
				return nil, err
			}
			fromPort, err := requiredIntAttr(edgeEl, "from-port")
			if err != nil {
				return nil, err
			}
			toLayer, err := requiredIntAttr(edgeEl, "to-layer")
			if err != nil {
				return nil, err
			}
			toPort, err := requiredIntAttr(edgeEl, "to-port")
			if err != nil {
				return nil, err
			}
			edgesByTo[toLayer] = append(edgesByTo[toLayer], edgeRecord{fromLayer: fromLayer, fromPort: fromPort, toPort: toPort})
		}
	}

	// Order: depth-first from every terminal, producers before
	// consumers. Layers unreachable from any terminal are never
	// constructed.
	visited := make(map[int64]struct{})
	var order []int64
	var visit func(id int64)
	visit = func(id int64) {
		if _, ok := visited[id]; ok {
			return
		}
		visited[id] = struct{}{}
		for _, e := range edgesByTo[id] {
			visit(e.fromLayer)
		}
		order = append(order, id)
	}
	for _, id := range terminals {
		visit(id)
	}

	name, _ := root.Attr("name")
	slog.Debug("graph construction ordered",
		"graph", name,
		"declared", len(records),
		"reachable", len(order))

	// Construct: resolve each layer's producer outputs by dense port
	// position, then materialize the node through the registry.
	idToNode := make(map[int64]*ir.Node)
	var graphNodes struct {
		parameters []*ir.Node
		results    []*ir.Node
		sinks      []*ir.Node
		all        []*ir.Node
	}
	readValueByVariable := make(map[string]*ir.Node)

	for _, id := range order {
		rec, ok := records[id]
		if !ok {
			return nil, newError(ErrCodeMalformedIR, "edge references layer %d which is not declared", id)
		}
		edges := edgesByTo[id]
		inputs := make([]ir.Output, len(edges))
		for _, e := range edges {
			producer := idToNode[e.fromLayer]
			if producer == nil {
				return nil, newError(ErrCodeMalformedIR, "attempt to access layer %d that is not in the graph", e.fromLayer).forLayer(rec.params)
			}
			producerRec := records[e.fromLayer]
			realIn, err := rec.params.realInputPortID(e.toPort)
			if err != nil {
				return nil, err
			}
			if realIn >= len(inputs) {
				return nil, newError(ErrCodeMalformedIR, "layer is inconsistent: input position %d exceeds %d resolved edges", realIn, len(inputs)).forLayer(rec.params)
			}
			realOut, err := producerRec.params.realOutputPortID(e.fromPort)
			if err != nil {
				return nil, err
			}
			if realOut >= len(producer.OutPorts) {
				return nil, newError(ErrCodeMalformedIR, "output position %d out of range for producer %q", realOut, producer.Name).forLayer(rec.params)
			}
			inputs[realIn] = producer.Output(realOut)
		}

		node, err := d.createNode(inputs, rec)
		if err != nil {
			return nil, err
		}
		idToNode[id] = node

		switch {
		case opset.IsParameter(node.Op):
			d.io.inputs[id] = int64(len(graphNodes.parameters))
			graphNodes.parameters = append(graphNodes.parameters, node)
		case opset.IsResult(node.Op):
			d.io.outputs[id] = int64(len(graphNodes.results))
			graphNodes.results = append(graphNodes.results, node)
		case opset.IsSink(node.Op):
			graphNodes.sinks = append(graphNodes.sinks, node)
		}
		if _, isRead := node.Op.(*opset.ReadValue); isRead {
			if v, ok := opset.VariableOf(node.Op); ok {
				readValueByVariable[v.ID] = node
			}
		}
		graphNodes.all = append(graphNodes.all, node)
	}

	// Assemble: boundary lists, invariants, state ordering.
	g := &ir.Graph{
		Name:       name,
		Parameters: graphNodes.parameters,
		Results:    graphNodes.results,
		Sinks:      graphNodes.sinks,
		Nodes:      graphNodes.all,
	}
	if err := g.Validate(); err != nil {
		return nil, newError(ErrCodeMalformedIR, "%v", err)
	}

	// A write must never be reordered before its paired read: record
	// the dependency explicitly for the scheduler.
	for _, sink := range g.Sinks {
		assign, ok := sink.Op.(*opset.Assign)
		if !ok {
			continue
		}
		v, ok := opset.VariableOf(assign)
		if !ok {
			continue
		}
		if reader, ok := readValueByVariable[v.ID]; ok {
			sink.AddControlDependency(reader)
		}
	}
	return g, nil
}

// createNode materializes one layer through the registry adapter:
// resolve the snapshot, instantiate, attach inputs, visit attributes,
// infer, then finalize by rebuilding from the node's own resolved
// inputs so every default-valued field is materialized
// deterministically.
func (d *deserializer) createNode(inputs []ir.Output, rec layerRecord) (*ir.Node, error) {
	p := rec.params
	for i, in := range inputs {
		if in.Node == nil {
			return nil, newError(ErrCodeMalformedIR, "incorrect input with index %d", i).forLayer(p)
		}
	}

	snapshot := d.opsets[p.Version]

	if _, exp := experimentalOpsAddedToOpset[p.Type]; exp && (p.Version == "experimental" || p.Version == "extension") {
		snapshot = d.opsets["opset6"]
	}

	// The serialized alias for constants.
	typeName := p.Type
	if typeName == "Const" {
		typeName = "Constant"
	}

	var node *ir.Node
	if snapshot != nil {
		if _, missing := opsMissingInOpset1[typeName]; missing && p.Version == "opset1" {
			snapshot = d.opsets["opset2"]
			if snapshot == nil {
				return nil, newError(ErrCodeUnsupportedOperation, "cannot create %s layer from unsupported opset %s", p.Type, p.Version).forLayer(p)
			}
		}
		if op, ok := snapshot.Create(typeName); ok {
			n := &ir.Node{
				ID:        p.ID,
				Name:      p.Name,
				TypeName:  typeName,
				OpsetName: p.Version,
				Inputs:    inputs,
				Op:        op,
			}
			visitor := d.child(rec.el)
			if err := visitor.visitAttributes(op, p); err != nil {
				return nil, err
			}
			if err := op.Infer(n); err != nil {
				return nil, newError(ErrCodeMalformedIR, "type inference failed: %v", err).forLayer(p)
			}
			if err := finalize(n); err != nil {
				return nil, newError(ErrCodeMalformedIR, "finalize failed: %v", err).forLayer(p)
			}
			node = n
		}
	}

	if node == nil && d.useFramework {
		op := opset.NewFrameworkNode()
		n := &ir.Node{
			ID:        p.ID,
			Name:      p.Name,
			TypeName:  p.Type,
			OpsetName: p.Version,
			Inputs:    inputs,
			Op:        op,
		}
		visitor := d.child(rec.el)
		if err := visitor.visitAttributes(op, p); err != nil {
			return nil, err
		}
		// The declared output ports are applied verbatim: no inference
		// for placeholders.
		n.OutPorts = make([]ir.Port, len(p.Outputs))
		for i, port := range p.Outputs {
			n.OutPorts[i] = ir.Port{Type: port.Type, Shape: port.Dims.Clone()}
		}
		slog.Debug("created framework placeholder", "layer", p.Name, "type", p.Type, "version", p.Version)
		node = n
	}

	if node == nil {
		return nil, newError(ErrCodeUnsupportedOperation, "cannot create %s layer %q from unsupported opset: %s", p.Type, p.Name, p.Version).forLayer(p)
	}

	// Non-semantic run-time annotations, applied verbatim.
	if dn := rec.el.Child("data"); dn != nil {
		if v, ok := dn.Attr("PrimitivesPriority"); ok {
			node.SetRTInfo("PrimitivesPriority", v)
		}
		if v, ok := dn.Attr("alt_width"); ok {
			node.SetRTInfo("alt_width", v)
		}
	}

	for i := 0; i < len(p.Outputs) && i < len(node.OutPorts); i++ {
		for _, tensorName := range p.Outputs[i].Names {
			node.OutPorts[i].AddName(tensorName)
		}
	}
	return node, nil
}

// finalize rebuilds the node from its own resolved inputs. Construction
// is not assumed idempotent without it: the rebuild makes every
// optional field's materialization deterministic.
func finalize(n *ir.Node) error {
	n.Op = n.Op.Clone()
	return n.Op.Infer(n)
}
