package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/calyx-ml/graphir/internal/convert"
	"github.com/calyx-ml/graphir/internal/document"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationReport is the payload of the validate command. Findings
// are coded and ordered by document position.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Layers   int      `json:"layers"`
	Edges    int      `json:"edges"`
	Findings []string `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <model.xml>",
		Short: "Check an IR document's structure without converting it",
		Long: `Validate performs structural checks only: required sections and
attributes, unique layer ids, edge endpoints that reference declared
layers. It does not resolve operations against the registries and does
not touch weight data.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, modelPath string, cmd *cobra.Command) error {
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

	report := validateStructure(doc)
	if opts.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		printReport(formatter, report)
	}

	if !report.Valid {
		return NewExitError(ExitFailure, "document is structurally invalid")
	}
	return nil
}

// validateStructure walks the document collecting every structural
// finding instead of stopping at the first.
func validateStructure(doc *document.Document) ValidationReport {
	var report ValidationReport
	finding := func(format string, args ...any) {
		report.Findings = append(report.Findings,
			fmt.Sprintf("%s: %s", convert.ErrCodeMalformedIR, fmt.Sprintf(format, args...)))
	}

	root := doc.Root()
	if root == nil || root.Name() != "net" {
		finding("document root must be a net element")
		report.Valid = false
		return report
	}
	if raw, ok := root.Attr("version"); !ok {
		finding("net element has no version attribute")
	} else if v, err := strconv.ParseInt(raw, 10, 64); err != nil {
		finding("version attribute %q is not an integer", raw)
	} else if v < 10 {
		finding("IR version %d is not supported; minimum is 10", v)
	}

	layersEl := root.Child("layers")
	if layersEl == nil {
		finding("missing layers section")
		report.Valid = len(report.Findings) == 0
		return report
	}

	declared := make(map[int64]struct{})
	for _, layerEl := range layersEl.Children("layer") {
		report.Layers++
		id, ok := intAttr(layerEl, "id")
		if !ok {
			finding("layer %d in document order has no integer id", report.Layers)
			continue
		}
		if _, dup := declared[id]; dup {
			finding("layer id %d is declared twice", id)
		}
		declared[id] = struct{}{}
		for _, attr := range []string{"type", "version", "name"} {
			if _, ok := layerEl.Attr(attr); !ok {
				finding("layer %d has no %s attribute", id, attr)
			}
		}
	}

	if edgesEl := root.Child("edges"); edgesEl != nil {
		for _, edgeEl := range edgesEl.Children("edge") {
			report.Edges++
			endpoints := true
			for _, attr := range []string{"from-layer", "from-port", "to-layer", "to-port"} {
				if _, ok := intAttr(edgeEl, attr); !ok {
					finding("edge %d has no integer %s attribute", report.Edges, attr)
					endpoints = false
				}
			}
			if !endpoints {
				continue
			}
			from, _ := intAttr(edgeEl, "from-layer")
			to, _ := intAttr(edgeEl, "to-layer")
			if _, ok := declared[from]; !ok {
				finding("edge %d references undeclared layer %d", report.Edges, from)
			}
			if _, ok := declared[to]; !ok {
				finding("edge %d references undeclared layer %d", report.Edges, to)
			}
		}
	}

	report.Valid = len(report.Findings) == 0
	return report
}

func intAttr(el *document.Element, name string) (int64, bool) {
	raw, ok := el.Attr(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func printReport(formatter *OutputFormatter, r ValidationReport) {
	w := formatter.Writer
	if r.Valid {
		fmt.Fprintf(w, "OK: %d layer(s), %d edge(s)\n", r.Layers, r.Edges)
		return
	}
	fmt.Fprintf(w, "INVALID: %d layer(s), %d edge(s), %d finding(s)\n", r.Layers, r.Edges, len(r.Findings))
	for _, f := range r.Findings {
		fmt.Fprintf(w, "  %s\n", f)
	}
}
