package drift

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/timmy/dialogbot/internal/domain"
	"github.com/timmy/dialogbot/internal/logger"
	"github.com/timmy/dialogbot/internal/vecmath"
)

// DefaultThreshold is the cosine similarity below which the corpus is
// considered to have drifted from the baseline.
const DefaultThreshold = 0.95

// ErrInvalidThreshold is returned for thresholds that are NaN or outside [-1, 1].
var ErrInvalidThreshold = errors.New("drift threshold must be within [-1, 1]")

// Baseline is the stored mean embedding the corpus is compared against.
type Baseline struct {
	MeanVector []float64 `json:"mean_vector"`
}

// UpdateFunc receives the current baseline (nil when the slot is empty) and
// returns the replacement, or nil to leave the slot unchanged.
type UpdateFunc func(current *Baseline) (*Baseline, error)

// BaselineStore persists the single baseline slot.
//
// Load returns (nil, nil) when the slot was never written. Update holds the
// slot exclusively while fn runs, including against other processes sharing
// the same backing file or table, and writes the returned baseline before
// releasing it. An error from fn aborts the update. Update may call fn more
// than once when the backend retries a conflicting transaction.
type BaselineStore interface {
	Load(ctx context.Context) (*Baseline, error)
	Update(ctx context.Context, fn UpdateFunc) error
}

// CorpusSource provides a snapshot of the corpus.
type CorpusSource interface {
	ListCorpus(ctx context.Context) ([]domain.CorpusEntry, error)
}

// Result is the outcome of one Check.
type Result struct {
	Status          domain.DriftStatus `json:"status"`
	Similarity      *float64           `json:"similarity,omitempty"`
	Threshold       float64            `json:"threshold"`
	CorpusSize      int                `json:"corpus_size"`
	BaselineUpdated bool               `json:"baseline_updated"`
}

// Detector compares the current corpus mean embedding with a stored baseline.
//
// The detector has two states, derived from the store: no baseline yet, and
// baseline set. The first check with data stores the current mean and reports
// initialized. Later checks report drifted when the similarity falls below the
// threshold, replacing the baseline with the current mean, and stable
// otherwise. A check never changes the baseline when it reports stable or
// no_data.
type Detector struct {
	corpus CorpusSource
	store  BaselineStore
	mu     sync.Mutex
}

// NewDetector creates a Detector.
func NewDetector(corpus CorpusSource, store BaselineStore) *Detector {
	return &Detector{corpus: corpus, store: store}
}

// Check runs one drift check. The read-compare-write on the baseline runs
// inside BaselineStore.Update, so checks sharing a store never both replace
// the same baseline. Calls on one Detector are also serialized locally.
func (d *Detector) Check(ctx context.Context, threshold float64) (*Result, error) {
	if math.IsNaN(threshold) || threshold < -1 || threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := d.corpus.ListCorpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	vectors := domain.Vectors(entries)
	result := &Result{Threshold: threshold, CorpusSize: len(vectors)}
	if len(vectors) == 0 {
		result.Status = domain.DriftStatusNoData
		return result, nil
	}

	current, err := vecmath.Mean(vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to compute corpus mean: %w", err)
	}
	if vecmath.Norm(current) == 0 {
		return nil, fmt.Errorf("corpus mean: %w", vecmath.ErrDegenerateVector)
	}

	var (
		status domain.DriftStatus
		sim    *float64
	)
	err = d.store.Update(ctx, func(baseline *Baseline) (*Baseline, error) {
		status, sim = "", nil
		if baseline == nil {
			status = domain.DriftStatusInitialized
			return &Baseline{MeanVector: current}, nil
		}
		s, err := vecmath.Cosine(baseline.MeanVector, current)
		if err != nil {
			return nil, fmt.Errorf("failed to compare with baseline: %w", err)
		}
		sim = &s
		if s >= threshold {
			status = domain.DriftStatusStable
			return nil, nil
		}
		status = domain.DriftStatusDrifted
		return &Baseline{MeanVector: current}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update baseline: %w", err)
	}

	result.Status = status
	result.Similarity = sim
	result.BaselineUpdated = status != domain.DriftStatusStable

	switch status {
	case domain.DriftStatusInitialized:
		logger.With(nil).WithCount(len(vectors)).Info(ctx, "Drift baseline initialized")
	case domain.DriftStatusDrifted:
		logger.With(nil).WithSimilarity(*sim).WithCount(len(vectors)).
			Warn(ctx, "Embedding drift detected (threshold %.3f)", threshold)
	}
	return result, nil
}
