// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"encoding/binary"
	"math"
)

// packEmbedding encodes a vector as little-endian float32 bytes for BLOB
// storage. A nil or empty vector packs to nil (stored as SQL NULL).
func packEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// unpackEmbedding decodes a packed BLOB back into a vector. Trailing bytes
// that do not form a whole float32 are ignored.
func unpackEmbedding(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// l2Distance returns the Euclidean distance between two vectors. Length
// mismatches compare only the shared prefix; callers store fixed-dimension
// vectors so this does not arise in practice.
func l2Distance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
