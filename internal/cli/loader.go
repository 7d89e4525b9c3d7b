package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/calyx-ml/graphir/internal/ir"
	"github.com/calyx-ml/graphir/internal/opset"
)

// LoadMode controls how errors are handled during manifest loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading extension opset manifests
// from a directory.
type LoadResult struct {
	OpSets    []*opset.OpSet
	CUEValue  cue.Value      // The raw CUE value for additional processing
	FileCount int            // Number of CUE files found
}

// LoadError represents an error that occurred during manifest loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Manifest validation errors
	ErrCodeOpsetEmpty   = "E101" // Opset declares no operations
	ErrCodeInvalidArity = "E102" // outputs is not a positive integer
	ErrCodeReservedName = "E103" // Opset name collides with a built-in snapshot
)

// LoadExtensions loads extension opset manifests from a directory of
// CUE files. Each manifest declares opsets under the top-level "opset"
// field:
//
//	opset: "vendorx": ops: {
//		"FancyDetector": {outputs: 2}
//		"Passthrough":   {outputs: 1}
//	}
//
// Every declared operation becomes a generic extension operation with
// the given output arity. If mode is LoadModeFailFast, returns on
// first error; LoadModeCollectAll collects all errors.
func LoadExtensions(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing manifest directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	builtin := opset.Builtin()

	opsetsVal := value.LookupPath(cue.ParsePath("opset"))
	if opsetsVal.Exists() {
		iter, iterErr := opsetsVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating opsets: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				ext, loadErr := compileOpset(iter.Label(), iter.Value(), builtin)
				if loadErr != nil {
					errs = append(errs, loadErr)
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.OpSets = append(result.OpSets, ext)
			}
		}
	}

	if len(result.OpSets) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no opsets found in manifests"})
	}

	// Load order of CUE fields is stable, but sort anyway so the
	// collision checks downstream see a deterministic sequence.
	sort.Slice(result.OpSets, func(i, j int) bool {
		return result.OpSets[i].Name() < result.OpSets[j].Name()
	})
	return result, errs
}

// compileOpset builds one extension snapshot from its manifest value.
func compileOpset(name string, v cue.Value, builtin map[string]*opset.OpSet) (*opset.OpSet, *LoadError) {
	if _, reserved := builtin[name]; reserved {
		return nil, &LoadError{
			Code:    ErrCodeReservedName,
			Message: fmt.Sprintf("opset %q collides with a built-in snapshot", name),
			Pos:     v.Pos(),
		}
	}

	ext := opset.New(name)
	opsVal := v.LookupPath(cue.ParsePath("ops"))
	if !opsVal.Exists() {
		return nil, &LoadError{
			Code:    ErrCodeOpsetEmpty,
			Message: fmt.Sprintf("opset %q declares no ops field", name),
			Pos:     v.Pos(),
		}
	}

	iter, err := opsVal.Fields()
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("opset %q: iterating ops: %v", name, err),
			Pos:     opsVal.Pos(),
		}
	}

	count := 0
	for iter.Next() {
		typeName := iter.Label()
		outputs := int64(1)
		if outVal := iter.Value().LookupPath(cue.ParsePath("outputs")); outVal.Exists() {
			n, err := outVal.Int64()
			if err != nil || n < 1 {
				return nil, &LoadError{
					Code:    ErrCodeInvalidArity,
					Message: fmt.Sprintf("opset %q: op %q: outputs must be a positive integer", name, typeName),
					Pos:     outVal.Pos(),
				}
			}
			outputs = n
		}
		arity := int(outputs)
		ext.Register(typeName, func() ir.Operation {
			return opset.NewCustomOp(typeName, arity)
		})
		count++
	}

	if count == 0 {
		return nil, &LoadError{
			Code:    ErrCodeOpsetEmpty,
			Message: fmt.Sprintf("opset %q declares no operations", name),
			Pos:     opsVal.Pos(),
		}
	}
	return ext, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
