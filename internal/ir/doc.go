// Package ir provides the canonical in-memory representation of a
// converted dataflow graph.
//
// This package contains type definitions and small value helpers only.
// All other internal packages import ir; ir imports nothing internal.
// This keeps ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - A constructed Graph is immutable after conversion returns, except
//     for the non-semantic RTInfo annotations on nodes
//   - Weight views are zero-copy: a Blob backed by a Weights store must
//     not outlive the store
//   - Dimension uses -1 to denote an unknown extent; a nil PartialShape
//     denotes unknown rank
package ir
