package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsViewSharesStorage(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	w := NewWeights(data)

	view, err := w.View(10, 20)
	require.NoError(t, err)
	require.Len(t, view, 20)
	assert.Equal(t, byte(10), view[0])
	assert.Equal(t, byte(29), view[19])

	// The view aliases the store: mutating the backing buffer is
	// visible through it.
	data[10] = 0xFF
	assert.Equal(t, byte(0xFF), view[0])
}

func TestWeightsViewCapped(t *testing.T) {
	w := NewWeights(make([]byte, 100))
	view, err := w.View(10, 20)
	require.NoError(t, err)
	// Appending must not grow into the rest of the store.
	assert.Equal(t, 20, cap(view))
}

func TestWeightsViewOutOfRange(t *testing.T) {
	w := NewWeights(make([]byte, 16))

	tests := []struct {
		name           string
		offset, length int64
	}{
		{"past end", 10, 10},
		{"negative offset", -1, 4},
		{"negative length", 0, -4},
		{"offset past end", 17, 0},
		{"offset plus length wraps", math.MaxInt64 - 7, 8},
		{"length wraps alone", 8, math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.View(tt.offset, tt.length)
			assert.Error(t, err)
		})
	}
}

func TestWeightsNil(t *testing.T) {
	var w *Weights
	assert.Equal(t, int64(0), w.ByteLength())
	_, err := w.View(0, 1)
	assert.Error(t, err)
}

func TestBlobLen(t *testing.T) {
	var b *Blob
	assert.Equal(t, int64(0), b.Len())
	assert.Equal(t, int64(3), (&Blob{Data: []byte{1, 2, 3}}).Len())
}
