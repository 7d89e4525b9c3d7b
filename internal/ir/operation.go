package ir

// AttrField names one typed attribute slot of an operation. Slot is a
// pointer to one of the closed set of slot kinds the attribute visitor
// matches exhaustively: scalar pointers (*string, *bool, *int64,
// *float64), vector pointers (*[]int32, *[]int64, *[]float64,
// *[]string), shape-likes (*PartialShape, *Shape, *Strides, *AxisSet,
// *CoordinateDiff), *ElementType, *[]ElementType, enum pointers owned
// by the opset package, **Graph, *Blob, **Variable, the generic
// attribute bag, and the three port-map slots (*[]InputDescriptor,
// *[]OutputDescriptor, *SpecialPorts).
type AttrField struct {
	Name string
	Slot any
}

// Operation is the attribute-bearing payload of a constructed Node.
// Implementations live in the opset package; the converter populates
// their slots through AttrFields and then asks Infer to resolve the
// owning node's output ports.
type Operation interface {
	// TypeName is the operation's declared type, e.g. "Convolution".
	TypeName() string
	// AttrFields exposes the operation's attribute slots in visitation
	// order.
	AttrFields() []AttrField
	// Infer validates the populated attributes against the node's
	// resolved inputs and fills in the node's output ports.
	Infer(n *Node) error
	// Clone returns an independent copy of the operation with every
	// optional field materialized, for the deterministic rebuild step.
	Clone() Operation
}
