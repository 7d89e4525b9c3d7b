package ir

import "fmt"

// Weights is the shared, immutable constant-data store for one IR
// document, addressable by byte offset. It is read-only for the whole
// conversion; views handed out by View alias its storage and must not
// outlive it.
type Weights struct {
	data []byte
}

// NewWeights wraps an externally supplied buffer without copying.
func NewWeights(data []byte) *Weights {
	return &Weights{data: data}
}

// ByteLength returns the store size in bytes. A nil store has length 0.
func (w *Weights) ByteLength() int64 {
	if w == nil {
		return 0
	}
	return int64(len(w.data))
}

// View returns a read-only window [offset, offset+length) sharing the
// store's underlying storage.
func (w *Weights) View(offset, length int64) ([]byte, error) {
	// Subtraction form keeps the bounds check overflow-free for large
	// offsets near math.MaxInt64.
	total := w.ByteLength()
	if w == nil || offset < 0 || length < 0 || length > total || offset > total-length {
		return nil, fmt.Errorf("weight view at offset %d, length %d out of range (store length %d)", offset, length, total)
	}
	return w.data[offset : offset+length : offset+length], nil
}

// Blob is a byte payload attached to a constructed node, either owned
// (copied from the document text) or shared (a zero-copy view into a
// Weights store).
type Blob struct {
	Data   []byte
	Shared bool
}

// Len returns the payload size in bytes.
func (b *Blob) Len() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.Data))
}
