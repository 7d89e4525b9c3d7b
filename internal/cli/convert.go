package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/calyx-ml/graphir/internal/convert"
	"github.com/calyx-ml/graphir/internal/document"
	"github.com/calyx-ml/graphir/internal/ir"
	"github.com/calyx-ml/graphir/internal/store"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	WeightsPath string
	OpsetsDir   string
	CachePath   string
	Fallback    bool
}

// GraphSummary is the success payload of the convert command.
type GraphSummary struct {
	Name        string   `json:"name"`
	NodeCount   int      `json:"node_count"`
	Parameters  []string `json:"parameters"`
	Results     []string `json:"results"`
	SinkCount   int      `json:"sink_count"`
	OpsetCensus string   `json:"opset_census"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <model.xml>",
		Short: "Convert an IR document into a validated graph",
		Long: `Convert parses an IR document, resolves every layer against the
operation registries, assembles the dataflow graph and prints a summary.
Conversion is atomic: any malformed structure, unsupported operation or
inconsistent weight reference fails the whole document.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.WeightsPath, "weights", "w", "", "weight store file")
	cmd.Flags().StringVar(&opts.OpsetsDir, "opsets", "", "directory of extension opset manifests")
	cmd.Flags().StringVar(&opts.CachePath, "cache", "", "record the conversion in a cache database")
	cmd.Flags().BoolVar(&opts.Fallback, "fallback", false, "substitute placeholders for unresolvable operations")

	return cmd
}

func runConvert(opts *ConvertOptions, modelPath string, cmd *cobra.Command) error {
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

	var weights *ir.Weights
	if opts.WeightsPath != "" {
		raw, err := os.ReadFile(opts.WeightsPath)
		if err != nil {
			formatter.Error(ErrCodeNotFound, fmt.Sprintf("reading weights: %v", err), nil)
			return NewExitError(ExitCommandError, "weights not readable")
		}
		weights = ir.NewWeights(raw)
	}

	convOpts := convert.Options{FallbackUnknownOps: opts.Fallback}
	if opts.OpsetsDir != "" {
		loadResult, loadErrors := LoadExtensions(opts.OpsetsDir, LoadModeFailFast)
		if len(loadErrors) > 0 {
			var loadErr *LoadError
			if errors.As(loadErrors[0], &loadErr) {
				formatter.Error(loadErr.Code, loadErr.Message, nil)
			} else {
				formatter.Error(ErrCodeGeneric, loadErrors[0].Error(), nil)
			}
			return NewExitError(ExitCommandError, "extension manifests failed to load")
		}
		formatter.VerboseLog("Loaded %d extension opset(s) from %d file(s)", len(loadResult.OpSets), loadResult.FileCount)
		convOpts.Extensions = loadResult.OpSets
	}

	g, err := convert.Convert(doc, weights, convOpts)
	if err != nil {
		code := ErrCodeGeneric
		if c, ok := convert.CodeOf(err); ok {
			code = string(c)
		}
		formatter.Error(code, err.Error(), nil)
		return NewExitError(ExitFailure, "conversion failed")
	}

	summary := summarize(g)
	if opts.CachePath != "" {
		if err := recordConversion(cmd, opts.CachePath, data, docVersion(doc), g); err != nil {
			formatter.Error(ErrCodeGeneric, fmt.Sprintf("recording conversion: %v", err), nil)
			return NewExitError(ExitCommandError, "cache write failed")
		}
		formatter.VerboseLog("Recorded conversion in %s", opts.CachePath)
	}

	if opts.Format == "json" {
		return formatter.Success(summary)
	}
	printSummary(formatter, summary)
	return nil
}

func summarize(g *ir.Graph) GraphSummary {
	params := make([]string, len(g.Parameters))
	for i, p := range g.Parameters {
		params[i] = p.Name
	}
	results := make([]string, len(g.Results))
	for i, r := range g.Results {
		results[i] = r.Name
	}
	return GraphSummary{
		Name:        g.Name,
		NodeCount:   len(g.Nodes),
		Parameters:  params,
		Results:     results,
		SinkCount:   len(g.Sinks),
		OpsetCensus: store.CensusOf(g),
	}
}

func printSummary(formatter *OutputFormatter, s GraphSummary) {
	w := formatter.Writer
	fmt.Fprintf(w, "Graph:      %s\n", s.Name)
	fmt.Fprintf(w, "Nodes:      %d\n", s.NodeCount)
	fmt.Fprintf(w, "Parameters: %v\n", s.Parameters)
	fmt.Fprintf(w, "Results:    %v\n", s.Results)
	fmt.Fprintf(w, "Sinks:      %d\n", s.SinkCount)
	fmt.Fprintf(w, "Opsets:     %s\n", s.OpsetCensus)
}

// docVersion reads the declared IR version from the document root.
// Validation already happened during conversion; 0 means unreadable.
func docVersion(doc *document.Document) int64 {
	root := doc.Root()
	if root == nil {
		return 0
	}
	raw, ok := root.Attr("version")
	if !ok {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func recordConversion(cmd *cobra.Command, path string, docBytes []byte, version int64, g *ir.Graph) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	_, err = st.PutConversion(cmd.Context(), store.Conversion{
		DocHash:     store.HashDocument(docBytes),
		GraphName:   g.Name,
		IRVersion:   version,
		NodeCount:   len(g.Nodes),
		ParamCount:  len(g.Parameters),
		ResultCount: len(g.Results),
		SinkCount:   len(g.Sinks),
		OpsetCensus: store.CensusOf(g),
	})
	return err
}
