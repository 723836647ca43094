package reduce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/dialogbot/internal/vecmath"
)

func TestReduce_InputErrors(t *testing.T) {
	_, err := Reduce(nil, MethodPCA)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = Reduce(nil, MethodTSNE)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	vs := []vecmath.Vector{{1, 0}, {0, 1}}
	_, err = Reduce(vs, Method("bogus"))
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = Reduce([]vecmath.Vector{{1, 0}, {0, 1, 0}}, MethodPCA)
	assert.ErrorIs(t, err, vecmath.ErrDimensionMismatch)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" TSNE ")
	require.NoError(t, err)
	assert.Equal(t, MethodTSNE, m)

	_, err = ParseMethod("umap")
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestPCA_Collinear(t *testing.T) {
	vs := []vecmath.Vector{{1, 1}, {2, 2}, {3, 3}}

	points, err := Reduce(vs, MethodPCA)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.InDelta(t, -math.Sqrt2, points[0].X, 1e-9)
	assert.InDelta(t, 0, points[1].X, 1e-9)
	assert.InDelta(t, math.Sqrt2, points[2].X, 1e-9)
	for _, p := range points {
		assert.InDelta(t, 0, p.Y, 1e-9)
	}
}

func TestPCA_DeterministicAndPadded(t *testing.T) {
	vs := []vecmath.Vector{{1, 0, 2}, {0, 1, 4}, {3, 2, 1}, {0.5, 0.5, 0.5}}
	a, err := Reduce(vs, MethodPCA)
	require.NoError(t, err)
	b, err := Reduce(vs, MethodPCA)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	single, err := Reduce([]vecmath.Vector{{4, 5, 6}}, MethodPCA)
	require.NoError(t, err)
	assert.Equal(t, []Point{{0, 0}}, single)

	oneDim, err := Reduce([]vecmath.Vector{{1}, {3}}, MethodPCA)
	require.NoError(t, err)
	assert.InDelta(t, 1, math.Abs(oneDim[0].X), 1e-9)
	assert.Zero(t, oneDim[0].Y)
	assert.Zero(t, oneDim[1].Y)
}

func TestTSNE_Reproducible(t *testing.T) {
	vs := []vecmath.Vector{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}, {0.2, 0.1, 0.9}}
	a, err := Reduce(vs, MethodTSNE)
	require.NoError(t, err)
	b, err := Reduce(vs, MethodTSNE)
	require.NoError(t, err)

	require.Len(t, a, len(vs))
	assert.Equal(t, a, b)
	for _, p := range a {
		assert.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y))
	}
}

func TestTSNE_SeparatesClusters(t *testing.T) {
	var vs []vecmath.Vector
	for i := 0; i < 4; i++ {
		d := float32(i) * 0.01
		vs = append(vs, vecmath.Vector{1 + d, d, 0})
	}
	for i := 0; i < 4; i++ {
		d := float32(i) * 0.01
		vs = append(vs, vecmath.Vector{d, 0, 1 + d})
	}

	points, err := Reduce(vs, MethodTSNE)
	require.NoError(t, err)

	dist := func(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }
	var within, between float64
	var nw, nb int
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			if (i < 4) == (j < 4) {
				within += dist(points[i], points[j])
				nw++
			} else {
				between += dist(points[i], points[j])
				nb++
			}
		}
	}
	assert.Less(t, within/float64(nw), between/float64(nb))
}

func TestTSNE_SinglePoint(t *testing.T) {
	points, err := Reduce([]vecmath.Vector{{1, 2}}, MethodTSNE)
	require.NoError(t, err)
	assert.Equal(t, []Point{{0, 0}}, points)
}

func TestPerplexityFor(t *testing.T) {
	assert.Equal(t, 30.0, perplexityFor(500, 0))
	assert.InDelta(t, 3.0, perplexityFor(10, 0), 1e-9)
	assert.Equal(t, 1.0, perplexityFor(2, 0))
	assert.Equal(t, 5.0, perplexityFor(2, 5))
}

func TestReduce_NormalizesMethod(t *testing.T) {
	vs := []vecmath.Vector{{1, 0, 0}, {0, 1, 0}, {0, 0, 2}}
	want, err := Reduce(vs, MethodPCA)
	require.NoError(t, err)
	got, err := Reduce(vs, " PCA ")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSubsample(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	assert.Equal(t, []int{0, 2, 4, 6, 8}, Subsample(items, 5))
	assert.Equal(t, []int{0, 3, 6}, Subsample(items, 3))
	assert.Equal(t, items, Subsample(items, 10))
	assert.Equal(t, items, Subsample(items, 0))
	assert.Len(t, Subsample(items, 1), 1)
}
