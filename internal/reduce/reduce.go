package reduce

import (
	"errors"
	"fmt"
	"strings"

	"github.com/timmy/dialogbot/internal/vecmath"
)

var (
	// ErrEmptyCorpus is returned when there is nothing to reduce.
	ErrEmptyCorpus = errors.New("empty corpus: no vectors to reduce")

	// ErrInvalidMethod is returned for an unsupported reduction method.
	ErrInvalidMethod = errors.New("invalid reduction method")
)

// Method is a dimensionality-reduction method name.
type Method string

const (
	MethodPCA  Method = "pca"
	MethodTSNE Method = "tsne"
)

// Methods lists the supported methods in the order a full re-render runs them.
var Methods = []Method{MethodTSNE, MethodPCA}

// ParseMethod validates a method name.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case MethodPCA, MethodTSNE:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, name)
	}
}

// Point is a 2D projection of one vector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Reduce projects vectors to two dimensions. Output order matches input order.
func Reduce(vectors []vecmath.Vector, method Method) ([]Point, error) {
	method, err := ParseMethod(string(method))
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, ErrEmptyCorpus
	}

	dim := vectors[0].Dim()
	data := make([][]float64, len(vectors))
	for i, v := range vectors {
		if v.Dim() != dim {
			return nil, fmt.Errorf("vector %d: %w: %d != %d", i, vecmath.ErrDimensionMismatch, v.Dim(), dim)
		}
		data[i] = v.Float64()
	}

	if method == MethodPCA {
		return pca(data)
	}
	return tsne(data, DefaultTSNEConfig())
}

// Subsample keeps at most limit items at evenly spaced positions, preserving
// order. The first item is always kept. limit <= 0 or len(items) <= limit
// returns items unchanged.
func Subsample[T any](items []T, limit int) []T {
	n := len(items)
	if limit <= 0 || n <= limit {
		return items
	}
	out := make([]T, limit)
	for i := range out {
		out[i] = items[i*n/limit]
	}
	return out
}
