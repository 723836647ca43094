package vecmath

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDegenerateVector is returned when a vector with zero norm takes part
	// in a similarity computation.
	ErrDegenerateVector = errors.New("degenerate vector: zero norm")

	// ErrDimensionMismatch is returned when two vectors of different length
	// are compared.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Float constrains the element types vectors may be built from.
type Float interface {
	~float32 | ~float64
}

// Vector is an embedding produced by the embedding model.
// It is never mutated after it is produced.
type Vector []float32

// Dim returns the dimensionality of the vector.
func (v Vector) Dim() int {
	return len(v)
}

// Float64 returns a float64 copy of the vector.
func (v Vector) Float64() []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Clone returns a copy that does not share storage with v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

func checkDims(a, b int) error {
	if a != b {
		return fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, a, b)
	}
	return nil
}

// Dot returns the dot product of a and b.
func Dot[T Float](a, b []T) (float64, error) {
	if err := checkDims(len(a), len(b)); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// Norm returns the Euclidean norm of a.
func Norm[T Float](a []T) float64 {
	var sum float64
	for _, x := range a {
		f := float64(x)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Cosine returns dot(a,b) / (||a|| * ||b||), clamped to [-1, 1].
// A zero-norm or empty operand yields ErrDegenerateVector instead of NaN.
func Cosine[T Float](a, b []T) (float64, error) {
	dot, err := Dot(a, b)
	if err != nil {
		return 0, err
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, ErrDegenerateVector
	}
	sim := dot / (na * nb)
	switch {
	case sim > 1:
		sim = 1
	case sim < -1:
		sim = -1
	}
	return sim, nil
}

// Mean returns the elementwise arithmetic mean of vectors.
// All vectors must share one dimensionality. An empty input returns nil.
func Mean[V ~[]T, T Float](vectors []V) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for i, v := range vectors {
		if err := checkDims(dim, len(v)); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}
	n := float64(len(vectors))
	for j := range sum {
		sum[j] /= n
	}
	return sum, nil
}
