package vecmath

import (
	"encoding/binary"
	"fmt"
	"math"
)

const bytesPerDim = 4

// Encode serializes v as little-endian IEEE-754 float32 values.
// A nil vector encodes to a nil blob.
func Encode(v Vector) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, len(v)*bytesPerDim)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*bytesPerDim:], math.Float32bits(x))
	}
	return buf
}

// Decode is the inverse of Encode. An empty blob decodes to a nil vector,
// which callers treat as "no embedding".
func Decode(blob []byte) (Vector, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob)%bytesPerDim != 0 {
		return nil, fmt.Errorf("invalid vector blob: length %d is not a multiple of %d", len(blob), bytesPerDim)
	}
	v := make(Vector, len(blob)/bytesPerDim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*bytesPerDim:]))
	}
	return v, nil
}
