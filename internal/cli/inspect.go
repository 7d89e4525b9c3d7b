package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/calyx-ml/graphir/internal/convert"
	"github.com/calyx-ml/graphir/internal/document"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
}

// LayerCensus is one row of the inspect output.
type LayerCensus struct {
	Type    string `json:"type"`
	Version string `json:"version"`
	Count   int    `json:"count"`
}

// InspectReport is the payload of the inspect command: a census of
// declared layers and edges with no registry resolution.
type InspectReport struct {
	Name   string        `json:"name"`
	Layers int           `json:"layers"`
	Edges  int           `json:"edges"`
	Census []LayerCensus `json:"census"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <model.xml>",
		Short: "Print a layer and edge census of an IR document",
		Long: `Inspect counts declared layers grouped by type and opset version,
without resolving them against the registries. Useful for judging
whether a document will convert before attempting it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	return cmd
}

func runInspect(opts *InspectOptions, modelPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(modelPath)
	if err != nil {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("reading model: %v", err), nil)
		return NewExitError(ExitCommandError, "model not readable")
	}

	doc, err := document.Parse(data)
	if err != nil {
		formatter.Error(string(convert.ErrCodeMalformedIR), fmt.Sprintf("parsing model: %v", err), nil)
		return NewExitError(ExitFailure, "parse failed")
	}

	root := doc.Root()
	if root == nil || root.Name() != "net" {
		formatter.Error(string(convert.ErrCodeMalformedIR), "document root must be a net element", nil)
		return NewExitError(ExitFailure, "not an IR document")
	}

	report := censusOf(root)
	if opts.Format == "json" {
		return formatter.Success(report)
	}
	printCensus(formatter, report)
	return nil
}

func censusOf(root *document.Element) InspectReport {
	report := InspectReport{}
	report.Name, _ = root.Attr("name")

	counts := make(map[LayerCensus]int)
	if layersEl := root.Child("layers"); layersEl != nil {
		for _, layerEl := range layersEl.Children("layer") {
			report.Layers++
			key := LayerCensus{}
			key.Type, _ = layerEl.Attr("type")
			key.Version, _ = layerEl.Attr("version")
			counts[key]++
		}
	}
	if edgesEl := root.Child("edges"); edgesEl != nil {
		report.Edges = len(edgesEl.Children("edge"))
	}

	for key, n := range counts {
		key.Count = n
		report.Census = append(report.Census, key)
	}
	sort.Slice(report.Census, func(i, j int) bool {
		a, b := report.Census[i], report.Census[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Version < b.Version
	})
	return report
}

func printCensus(formatter *OutputFormatter, r InspectReport) {
	w := formatter.Writer
	fmt.Fprintf(w, "Graph:  %s\n", r.Name)
	fmt.Fprintf(w, "Layers: %d\n", r.Layers)
	fmt.Fprintf(w, "Edges:  %d\n", r.Edges)
	for _, row := range r.Census {
		fmt.Fprintf(w, "  %4d  %-40s %s\n", row.Count, row.Type, row.Version)
	}
}
