package convert

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes conversion failures.
type ErrorCode string

const (
	// ErrCodeMalformedIR indicates a structurally invalid document:
	// missing required section, unresolvable port id, unresolvable
	// boundary reference, ambiguous list syntax, duplicate name.
	ErrCodeMalformedIR ErrorCode = "MALFORMED_IR"

	// ErrCodeUnsupportedOperation indicates a declared type/version the
	// registry cannot resolve with fallback disabled.
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"

	// ErrCodeInconsistentWeights indicates constant data that does not
	// fit the shared weight store: out-of-range offset/size, empty
	// store, or a size smaller than the declared tensor footprint.
	ErrCodeInconsistentWeights ErrorCode = "INCONSISTENT_WEIGHTS"

	// ErrCodeContractViolation indicates a registered operation exposes
	// an attribute slot the visitor has no handler for. This signals a
	// registry/visitor version mismatch, not malformed input.
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
)

// Error is a fatal conversion error. Every failure aborts the whole
// top-level conversion; there is no partial-graph recovery.
type Error struct {
	Code    ErrorCode
	Message string

	// Node context for diagnosis, where available. NodeID is -1 when
	// the failure is not tied to one declared node.
	NodeID   int64
	NodeName string
	NodeType string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.NodeName != "" || e.NodeType != "" {
		return fmt.Sprintf("%s: %s (layer %s %q id=%d)", e.Code, e.Message, e.NodeType, e.NodeName, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), NodeID: -1}
}

func (e *Error) forLayer(p layerParams) *Error {
	e.NodeID = p.ID
	e.NodeName = p.Name
	e.NodeType = p.Type
	return e
}

// CodeOf extracts the error code from a (possibly wrapped) conversion
// error. The second return is false for foreign errors.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsMalformedIR reports whether err is a malformed-document failure.
func IsMalformedIR(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeMalformedIR
}

// IsUnsupportedOperation reports whether err is an unresolvable
// operation failure.
func IsUnsupportedOperation(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeUnsupportedOperation
}

// IsInconsistentWeights reports whether err is a weight-data failure.
func IsInconsistentWeights(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeInconsistentWeights
}

// IsContractViolation reports whether err is a registry/visitor
// mismatch.
func IsContractViolation(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeContractViolation
}
