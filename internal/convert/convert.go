// Package convert assembles executable graphs from serialized IR
// documents. Conversion is atomic: a document either yields a fully
// validated graph or a single coded error, never a partial structure.
package convert

import (
	"log/slog"

	"github.com/calyx-ml/graphir/internal/document"
	"github.com/calyx-ml/graphir/internal/ir"
	"github.com/calyx-ml/graphir/internal/opset"
)

// Options configures one conversion.
type Options struct {
	// Extensions are additional operation registries merged over the
	// built-in snapshots. A name collision with a built-in snapshot is
	// fatal.
	Extensions []*opset.OpSet

	// FallbackUnknownOps substitutes a framework placeholder for
	// operations no registry can resolve instead of failing the
	// conversion.
	FallbackUnknownOps bool
}

// Convert assembles a graph from a parsed document and its weight
// store. The weight store may be nil when the document binds no
// constant data.
func Convert(doc *document.Document, weights *ir.Weights, opts Options) (*ir.Graph, error) {
	root := doc.Root()
	if root == nil || root.Name() != "net" {
		return nil, newError(ErrCodeMalformedIR, "document root must be a net element")
	}
	version, err := requiredIntAttr(root, "version")
	if err != nil {
		return nil, err
	}
	if version < 10 {
		return nil, newError(ErrCodeMalformedIR, "IR version %d is not supported; minimum is 10", version)
	}

	opsets := opset.Builtin()
	for _, ext := range opts.Extensions {
		if ext == nil {
			continue
		}
		if _, taken := opsets[ext.Name()]; taken {
			return nil, newError(ErrCodeContractViolation, "extension opset %q collides with a built-in snapshot", ext.Name())
		}
		opsets[ext.Name()] = ext
	}

	d := &deserializer{
		node:         root,
		weights:      weights,
		opsets:       opsets,
		variables:    make(map[string]*ir.Variable),
		io:           newIOMaps(),
		useFramework: opts.FallbackUnknownOps,
	}

	var graphSlot *ir.Graph
	if err := d.visitAttr(layerParams{ID: -1}, "net", &graphSlot); err != nil {
		return nil, err
	}

	name, _ := root.Attr("name")
	slog.Info("converted IR document",
		"graph", name,
		"version", version,
		"nodes", len(graphSlot.Nodes),
		"parameters", len(graphSlot.Parameters),
		"results", len(graphSlot.Results),
		"sinks", len(graphSlot.Sinks))
	return graphSlot, nil
}
