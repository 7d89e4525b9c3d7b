package ir

import (
	"fmt"
	"strings"
)

// Dimension is one extent of a tensor. -1 means the extent is unknown.
type Dimension int64

// DynamicDimension is the unknown extent marker.
const DynamicDimension Dimension = -1

// IsDynamic reports whether the extent is unknown.
func (d Dimension) IsDynamic() bool { return d < 0 }

// PartialShape is an ordered list of dimensions, possibly dynamic.
// A nil PartialShape has unknown rank.
type PartialShape []Dimension

// DynamicShape returns the unknown-rank shape.
func DynamicShape() PartialShape { return nil }

// NewPartialShape wraps raw int64 extents.
func NewPartialShape(dims []int64) PartialShape {
	ps := make(PartialShape, len(dims))
	for i, d := range dims {
		ps[i] = Dimension(d)
	}
	return ps
}

// IsStatic reports whether the rank and every extent are known.
func (p PartialShape) IsStatic() bool {
	if p == nil {
		return false
	}
	for _, d := range p {
		if d.IsDynamic() {
			return false
		}
	}
	return true
}

// ElementCount returns the number of elements a static shape holds.
// A scalar (rank 0) holds one element.
func (p PartialShape) ElementCount() (int64, bool) {
	if !p.IsStatic() {
		return 0, false
	}
	n := int64(1)
	for _, d := range p {
		n *= int64(d)
	}
	return n, true
}

// Clone returns an independent copy.
func (p PartialShape) Clone() PartialShape {
	if p == nil {
		return nil
	}
	out := make(PartialShape, len(p))
	copy(out, p)
	return out
}

func (p PartialShape) String() string {
	if p == nil {
		return "[...]"
	}
	parts := make([]string, len(p))
	for i, d := range p {
		if d.IsDynamic() {
			parts[i] = "?"
		} else {
			parts[i] = fmt.Sprintf("%d", int64(d))
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Shape is a fully static shape.
type Shape []int64

// ToPartial widens a static shape.
func (s Shape) ToPartial() PartialShape {
	return NewPartialShape(s)
}

// Strides is a per-axis step list.
type Strides []int64

// AxisSet is a set of axis indices, kept in declaration order.
type AxisSet []int64

// CoordinateDiff is a signed per-axis offset list (padding and the like).
type CoordinateDiff []int64
