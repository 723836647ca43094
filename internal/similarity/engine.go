package similarity

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/timmy/dialogbot/internal/domain"
	"github.com/timmy/dialogbot/internal/explain"
	"github.com/timmy/dialogbot/internal/logger"
	"github.com/timmy/dialogbot/internal/vecmath"
)

const (
	// DefaultTopK is the maximum number of matches returned by Rank.
	DefaultTopK = 5

	// DefaultExplainTimeout bounds a single natural-language explanation.
	DefaultExplainTimeout = 10 * time.Second

	// FallbackPrefix starts the explanation returned when the generator fails.
	FallbackPrefix = "explanation unavailable: "
)

// Match is one ranked corpus entry.
type Match struct {
	ID            uint    `json:"id"`
	Text          string  `json:"text"`
	Score         float64 `json:"score"`
	TopDimensions []int   `json:"top_dimensions,omitempty"`
	Explanation   string  `json:"explanation,omitempty"`
}

// Skipped is a corpus entry that could not be compared with the query.
type Skipped struct {
	ID  uint  `json:"id"`
	Err error `json:"-"`
}

// Ranking is the result of Rank.
type Ranking struct {
	Matches []Match
	Skipped []Skipped
}

// Config holds Engine settings.
type Config struct {
	TopK           int
	ExplainTimeout time.Duration
}

// Engine ranks corpus entries against a query vector and explains matches.
type Engine struct {
	generator      explain.Generator
	topK           int
	explainTimeout time.Duration
}

// NewEngine creates an Engine. A nil generator makes every natural-language
// explanation fall back.
func NewEngine(generator explain.Generator, cfg *Config) *Engine {
	e := &Engine{
		generator:      generator,
		topK:           DefaultTopK,
		explainTimeout: DefaultExplainTimeout,
	}
	if cfg != nil {
		if cfg.TopK > 0 {
			e.topK = cfg.TopK
		}
		if cfg.ExplainTimeout > 0 {
			e.explainTimeout = cfg.ExplainTimeout
		}
	}
	return e
}

// TopK returns the configured match limit.
func (e *Engine) TopK() int {
	return e.topK
}

// Rank scores every entry that has an embedding by cosine similarity with the
// query and returns the best matches, highest first. Ties keep corpus order.
// Entries that cannot be compared are reported in Ranking.Skipped.
func (e *Engine) Rank(query vecmath.Vector, corpus []domain.CorpusEntry) (*Ranking, error) {
	if vecmath.Norm(query) == 0 {
		return nil, fmt.Errorf("query: %w", vecmath.ErrDegenerateVector)
	}

	ranking := &Ranking{}
	matches := make([]Match, 0, len(corpus))
	for _, entry := range corpus {
		if !entry.HasVector() {
			continue
		}
		score, err := vecmath.Cosine(query, entry.Vector)
		if err != nil {
			ranking.Skipped = append(ranking.Skipped, Skipped{ID: entry.ID, Err: err})
			continue
		}
		matches = append(matches, Match{ID: entry.ID, Text: entry.Text, Score: score})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > e.topK {
		matches = matches[:e.topK]
	}
	ranking.Matches = matches
	return ranking, nil
}

// ExplainDimensions returns up to topK dimension indices ordered by the
// elementwise product a[i]*b[i], largest first. Equal products keep the lower
// index first.
func ExplainDimensions(a, b vecmath.Vector, topK int) ([]int, error) {
	if a.Dim() != b.Dim() {
		return nil, fmt.Errorf("%w: %d != %d", vecmath.ErrDimensionMismatch, a.Dim(), b.Dim())
	}
	if topK <= 0 {
		return []int{}, nil
	}

	products := make([]float64, a.Dim())
	indices := make([]int, a.Dim())
	for i := range a {
		products[i] = float64(a[i]) * float64(b[i])
		indices[i] = i
	}
	slices.SortStableFunc(indices, func(i, j int) int {
		return cmp.Compare(products[j], products[i])
	})
	if len(indices) > topK {
		indices = indices[:topK]
	}
	return indices, nil
}

// ExplainNaturalLanguage asks the generator why two texts are similar.
// It never fails: errors and timeouts are logged and turned into a fallback
// string starting with FallbackPrefix.
func (e *Engine) ExplainNaturalLanguage(ctx context.Context, textA, textB string) string {
	if e.generator == nil {
		return FallbackPrefix + "explainer not configured"
	}

	ctx, cancel := context.WithTimeout(ctx, e.explainTimeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := e.generator.Explain(ctx, textA, textB)
		done <- outcome{text: text, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil {
		reason := res.err.Error()
		if errors.Is(res.err, context.DeadlineExceeded) {
			reason = "timed out"
		}
		logger.CtxWarn(ctx, "Natural-language explanation failed: %v", res.err)
		return FallbackPrefix + reason
	}
	return res.text
}
