package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElementType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ElementType
	}{
		{"canonical f32", "f32", F32},
		{"canonical i64", "i64", I64},
		{"canonical boolean", "boolean", Boolean},
		{"canonical u1", "u1", U1},
		{"alias fp32", "fp32", F32},
		{"alias FP32 uppercase", "FP32", F32},
		{"alias fp16", "fp16", F16},
		{"alias int64", "int64", I64},
		{"alias uint8", "uint8", U8},
		{"alias bin", "bin", U1},
		{"alias bool", "bool", Boolean},
		{"alias half", "half", F16},
		{"alias undefined", "undefined", Dynamic},
		{"surrounding whitespace", "  f32  ", F32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			et, err := ParseElementType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, et)
		})
	}
}

func TestParseElementTypeUnknown(t *testing.T) {
	_, err := ParseElementType("florb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "florb")
}

func TestElementTypeBitWidth(t *testing.T) {
	tests := []struct {
		et    ElementType
		width int
	}{
		{F64, 64},
		{I64, 64},
		{F32, 32},
		{F16, 16},
		{BF16, 16},
		{I8, 8},
		{Boolean, 8},
		{I4, 4},
		{U4, 4},
		{U1, 1},
		{Dynamic, 0},
	}

	for _, tt := range tests {
		t.Run(tt.et.String(), func(t *testing.T) {
			assert.Equal(t, tt.width, tt.et.BitWidth())
		})
	}
}

func TestElementTypeStringRoundTrip(t *testing.T) {
	for et, name := range elementNames {
		parsed, err := ParseElementType(name)
		require.NoError(t, err, name)
		assert.Equal(t, et, parsed)
		assert.Equal(t, name, et.String())
	}
}
