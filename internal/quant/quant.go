// Package quant implements sign-bit vector quantization and the Hamming
// kernel used by the ANN tree.
package quant

import (
	"fmt"
	"math/bits"
)

// QV is a quantized vector: B = D/8 bytes, bit i of byte j set iff the
// source vector's component 8j+i was >= 0.
type QV []byte

// Dimension returns the dimensionality D represented by a QV of this length.
func Dimension(qv QV) int { return len(qv) * 8 }

// ByteLen returns B = D/8 for a given dimension D. D must be a multiple of 8.
func ByteLen(dimension int) int { return dimension / 8 }

// Quantize maps a real vector of dimension D (D a multiple of 8) to a packed
// bit vector of B = D/8 bytes: bit i of byte j is set iff v[8j+i] >= 0.0.
func Quantize(v []float32) (QV, error) {
	if len(v)%8 != 0 {
		return nil, newError(ErrInvalidArgument, "quant", "Quantize",
			"vector dimension must be a multiple of 8").WithRetryable(false)
	}
	for i, x := range v {
		if x != x { // NaN
			return nil, newError(ErrNaNComponent, "quant", "Quantize",
				fmt.Sprintf("component %d is NaN", i)).WithRetryable(false)
		}
	}

	b := len(v) / 8
	qv := make(QV, b)
	for j := 0; j < b; j++ {
		var byteVal byte
		for i := 0; i < 8; i++ {
			if v[8*j+i] >= 0.0 {
				byteVal |= 1 << uint(i)
			}
		}
		qv[j] = byteVal
	}
	return qv, nil
}

// Dequantize maps a packed bit vector back to +/-1.0 components. It exists
// for debugging only; it is not the inverse of Quantize in any lossless
// sense.
func Dequantize(qv QV) []float32 {
	out := make([]float32, len(qv)*8)
	for j, byteVal := range qv {
		for i := 0; i < 8; i++ {
			if byteVal&(1<<uint(i)) != 0 {
				out[8*j+i] = 1.0
			} else {
				out[8*j+i] = -1.0
			}
		}
	}
	return out
}

// Hamming returns the number of differing bits between a and b: the
// population count of their XOR. Commutative; Hamming(a,a) == 0;
// Hamming(a,b) <= 8*len(a).
func Hamming(a, b QV) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	dist := 0
	i := 0
	for ; i+8 <= n; i += 8 {
		x := uint64(a[i]) | uint64(a[i+1])<<8 | uint64(a[i+2])<<16 | uint64(a[i+3])<<24 |
			uint64(a[i+4])<<32 | uint64(a[i+5])<<40 | uint64(a[i+6])<<48 | uint64(a[i+7])<<56
		y := uint64(b[i]) | uint64(b[i+1])<<8 | uint64(b[i+2])<<16 | uint64(b[i+3])<<24 |
			uint64(b[i+4])<<32 | uint64(b[i+5])<<40 | uint64(b[i+6])<<48 | uint64(b[i+7])<<56
		dist += bits.OnesCount64(x ^ y)
	}
	for ; i < n; i++ {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	return dist
}

// Equal reports whether two QVs are byte-for-byte identical.
func Equal(a, b QV) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
