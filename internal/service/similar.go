package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/dialogbot/internal/drift"
	"github.com/timmy/dialogbot/internal/embedding"
	"github.com/timmy/dialogbot/internal/logger"
	"github.com/timmy/dialogbot/internal/similarity"
	"github.com/timmy/dialogbot/internal/vecmath"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentExplanations caps in-flight generator calls per request.
// With the default top-k every explanation runs at once, so a request waits
// at most one explanation timeout.
const maxConcurrentExplanations = 8

// SimilarRequest is the input of FindSimilar.
type SimilarRequest struct {
	Query             string `json:"query" binding:"required"`
	ExplainDimensions bool   `json:"explain_dimensions"`
	TopDimensions     int    `json:"top_dimensions"`
	Explain           bool   `json:"explain"`
}

// SimilarResponse lists the matches of a query.
type SimilarResponse struct {
	Query   string             `json:"query"`
	Matches []similarity.Match `json:"matches"`
	Skipped int                `json:"skipped"`
}

// SimilarService finds stored conversations similar to a query text.
type SimilarService struct {
	embedder *embedding.Embedder
	corpus   drift.CorpusSource
	engine   *similarity.Engine
	topDims  int
}

// NewSimilarService creates a new similar-conversation service.
// topDims is the default number of dimensions reported per match.
func NewSimilarService(embedder *embedding.Embedder, corpus drift.CorpusSource, engine *similarity.Engine, topDims int) *SimilarService {
	if topDims <= 0 {
		topDims = 5
	}
	return &SimilarService{embedder: embedder, corpus: corpus, engine: engine, topDims: topDims}
}

// FindSimilar embeds the query and ranks the corpus against it.
func (s *SimilarService) FindSimilar(ctx context.Context, req *SimilarRequest) (*SimilarResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	query, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	entries, err := s.corpus.ListCorpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	ranking, err := s.engine.Rank(query, entries)
	if err != nil {
		return nil, err
	}
	if len(ranking.Skipped) > 0 {
		logger.With(logger.Fields{logger.FieldCount: len(ranking.Skipped)}).
			Warn(ctx, "Skipped corpus entries that could not be compared")
	}

	vectors := make(map[uint]vecmath.Vector, len(ranking.Matches))
	if req.ExplainDimensions {
		for _, e := range entries {
			vectors[e.ID] = e.Vector
		}
	}
	topDims := req.TopDimensions
	if topDims <= 0 {
		topDims = s.topDims
	}

	for i := range ranking.Matches {
		m := &ranking.Matches[i]
		if req.ExplainDimensions {
			dims, err := similarity.ExplainDimensions(query, vectors[m.ID], topDims)
			if err != nil {
				return nil, fmt.Errorf("match %d: %w", m.ID, err)
			}
			m.TopDimensions = dims
		}
	}

	if req.Explain {
		var g errgroup.Group
		g.SetLimit(maxConcurrentExplanations)
		for i := range ranking.Matches {
			m := &ranking.Matches[i]
			g.Go(func() error {
				m.Explanation = s.engine.ExplainNaturalLanguage(ctx, req.Query, m.Text)
				return nil
			})
		}
		_ = g.Wait()
	}

	return &SimilarResponse{
		Query:   req.Query,
		Matches: ranking.Matches,
		Skipped: len(ranking.Skipped),
	}, nil
}
