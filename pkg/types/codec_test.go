package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeTupleRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		tuple Tuple
	}{
		{"scalars", Tuple{Null(), Bool(true), Int(-7), Float(3.5), Str("hi"), Bytes([]byte{1, 2}), Bot()}},
		{"nested list", Tuple{List(Int(1), Str("a"), List(Bool(false)))}},
		{"negative float", Tuple{Float(-0.125)}},
		{"empty string", Tuple{Str("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := EncodeTuple(tt.tuple)
			dec, err := DecodeTuple(enc, len(tt.tuple))
			assert.NoError(t, err)
			assert.Equal(t, len(tt.tuple), len(dec))
			for i := range tt.tuple {
				assert.Equal(t, 0, tt.tuple[i].Compare(dec[i]), "column %d mismatch: %v vs %v", i, tt.tuple[i], dec[i])
			}
		})
	}
}

func TestEncodeTuplePreservesOrdering(t *testing.T) {
	tests := []struct {
		name string
		a, b DataValue
	}{
		{"int negative before positive", Int(-1), Int(1)},
		{"float negative before positive", Float(-2.5), Float(2.5)},
		{"string lexicographic", Str("abc"), Str("abd")},
		{"kind ordering null before bool", Null(), Bool(false)},
		{"kind ordering bool before int", Bool(true), Int(0)},
		{"kind ordering string before bytes", Str("z"), Bytes([]byte{0})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ea := EncodeTuple(Tuple{tt.a})
			eb := EncodeTuple(Tuple{tt.b})
			assert.Equal(t, tt.a.Compare(tt.b), compareBytesSign(ea, eb))
		})
	}
}

func compareBytesSign(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
