package embedding

import (
	"context"
	"hash/fnv"

	"github.com/timmy/dialogbot/internal/vecmath"
)

// HashEncoder is an offline, deterministic encoder based on signed feature
// hashing of unigrams and bigrams. It needs no model weights, which makes it
// the default for local runs and tests.
type HashEncoder struct {
	dimensions int
}

// NewHashEncoder creates a HashEncoder producing vectors of the given size.
func NewHashEncoder(dimensions int) *HashEncoder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEncoder{dimensions: dimensions}
}

func (h *HashEncoder) Dimensions() int { return h.dimensions }

func (h *HashEncoder) Model() string { return "feature-hash" }

// Encode hashes every token and adjacent token pair into a signed bucket and
// L2-normalizes the result.
func (h *HashEncoder) Encode(_ context.Context, text string) (vecmath.Vector, error) {
	tokens := tokenize(text)
	acc := make([]float64, h.dimensions)
	for i, tok := range tokens {
		h.add(acc, tok, 1)
		if i > 0 {
			h.add(acc, tokens[i-1]+"\x00"+tok, 0.5)
		}
	}

	norm := vecmath.Norm(acc)
	vec := make(vecmath.Vector, h.dimensions)
	if norm == 0 {
		return vec, nil
	}
	for i, x := range acc {
		vec[i] = float32(x / norm)
	}
	return vec, nil
}

func (h *HashEncoder) add(acc []float64, feature string, weight float64) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dimensions))
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	acc[idx] += sign * weight
}

var _ Encoder = (*HashEncoder)(nil)
