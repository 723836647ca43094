package drift

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/dialogbot/internal/domain"
	"github.com/timmy/dialogbot/internal/vecmath"
)

type staticCorpus struct {
	mu      sync.Mutex
	entries []domain.CorpusEntry
	err     error
}

func (c *staticCorpus) ListCorpus(context.Context) ([]domain.CorpusEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries, c.err
}

func (c *staticCorpus) set(vectors ...vecmath.Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	for i, v := range vectors {
		c.entries = append(c.entries, domain.CorpusEntry{ID: uint(i + 1), Vector: v})
	}
}

type countingStore struct {
	*MemoryStore
	saves   atomic.Int32
	loadErr error
}

func (s *countingStore) Load(ctx context.Context) (*Baseline, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.MemoryStore.Load(ctx)
}

func (s *countingStore) Update(ctx context.Context, fn UpdateFunc) error {
	if s.loadErr != nil {
		return s.loadErr
	}
	return s.MemoryStore.Update(ctx, func(current *Baseline) (*Baseline, error) {
		next, err := fn(current)
		if err == nil && next != nil {
			s.saves.Add(1)
		}
		return next, err
	})
}

func TestCheck_InitializeThenStable(t *testing.T) {
	corpus := &staticCorpus{}
	corpus.set(vecmath.Vector{1, 0}, vecmath.Vector{0.5, 0.5})
	store := &countingStore{MemoryStore: NewMemoryStore()}
	d := NewDetector(corpus, store)
	ctx := context.Background()

	res, err := d.Check(ctx, DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, domain.DriftStatusInitialized, res.Status)
	assert.True(t, res.BaselineUpdated)
	assert.Nil(t, res.Similarity)

	b, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.InDeltaSlice(t, []float64{0.75, 0.25}, b.MeanVector, 1e-9)

	res, err = d.Check(ctx, DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, domain.DriftStatusStable, res.Status)
	require.NotNil(t, res.Similarity)
	assert.InDelta(t, 1.0, *res.Similarity, 1e-9)
	assert.False(t, res.BaselineUpdated)
	assert.Equal(t, int32(1), store.saves.Load())
}

func TestCheck_DriftedReplacesBaseline(t *testing.T) {
	corpus := &staticCorpus{}
	corpus.set(vecmath.Vector{0, 1})
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &Baseline{MeanVector: []float64{1, 0}}))

	res, err := NewDetector(corpus, store).Check(ctx, 0.95)
	require.NoError(t, err)
	assert.Equal(t, domain.DriftStatusDrifted, res.Status)
	require.NotNil(t, res.Similarity)
	assert.InDelta(t, 0.0, *res.Similarity, 1e-9)
	assert.True(t, res.BaselineUpdated)

	b, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, b.MeanVector)
}

func TestCheck_NoData(t *testing.T) {
	corpus := &staticCorpus{entries: []domain.CorpusEntry{{ID: 1, Text: "no embedding"}}}
	store := &countingStore{MemoryStore: NewMemoryStore()}

	res, err := NewDetector(corpus, store).Check(context.Background(), DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, domain.DriftStatusNoData, res.Status)
	assert.Zero(t, store.saves.Load())
}

func TestCheck_EntriesWithoutEmbeddingExcluded(t *testing.T) {
	corpus := &staticCorpus{entries: []domain.CorpusEntry{
		{ID: 1, Vector: vecmath.Vector{2, 0}},
		{ID: 2},
	}}
	store := NewMemoryStore()

	res, err := NewDetector(corpus, store).Check(context.Background(), DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CorpusSize)

	b, _ := store.Load(context.Background())
	assert.Equal(t, []float64{2, 0}, b.MeanVector)
}

func TestCheck_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("corpus unreadable", func(t *testing.T) {
		corpus := &staticCorpus{err: errors.New("db down")}
		_, err := NewDetector(corpus, NewMemoryStore()).Check(ctx, DefaultThreshold)
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("baseline unreadable", func(t *testing.T) {
		corpus := &staticCorpus{}
		corpus.set(vecmath.Vector{1, 0})
		store := &countingStore{MemoryStore: NewMemoryStore(), loadErr: errors.New("corrupt")}
		_, err := NewDetector(corpus, store).Check(ctx, DefaultThreshold)
		assert.ErrorContains(t, err, "corrupt")
		assert.Zero(t, store.saves.Load())
	})

	t.Run("degenerate mean", func(t *testing.T) {
		corpus := &staticCorpus{}
		corpus.set(vecmath.Vector{1, 0}, vecmath.Vector{-1, 0})
		_, err := NewDetector(corpus, NewMemoryStore()).Check(ctx, DefaultThreshold)
		assert.ErrorIs(t, err, vecmath.ErrDegenerateVector)
	})

	t.Run("baseline dimension mismatch", func(t *testing.T) {
		corpus := &staticCorpus{}
		corpus.set(vecmath.Vector{1, 0})
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, &Baseline{MeanVector: []float64{1, 0, 0}}))
		_, err := NewDetector(corpus, store).Check(ctx, DefaultThreshold)
		assert.ErrorIs(t, err, vecmath.ErrDimensionMismatch)
	})

	t.Run("invalid threshold", func(t *testing.T) {
		d := NewDetector(&staticCorpus{}, NewMemoryStore())
		for _, th := range []float64{math.NaN(), 1.5, -2} {
			_, err := d.Check(ctx, th)
			assert.ErrorIs(t, err, ErrInvalidThreshold)
		}
	})
}

func TestCheck_ConcurrentChecksInitializeOnce(t *testing.T) {
	corpus := &staticCorpus{}
	corpus.set(vecmath.Vector{1, 2, 3})
	store := &countingStore{MemoryStore: NewMemoryStore()}
	d := NewDetector(corpus, store)

	var (
		wg          sync.WaitGroup
		initialized atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := d.Check(context.Background(), DefaultThreshold)
			if err == nil && res.Status == domain.DriftStatusInitialized {
				initialized.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), initialized.Load())
	assert.Equal(t, int32(1), store.saves.Load())
}

func TestCheck_DetectorsSharingStoreInitializeOnce(t *testing.T) {
	corpus := &staticCorpus{}
	corpus.set(vecmath.Vector{1, 0}, vecmath.Vector{0, 1})
	store := &countingStore{MemoryStore: NewMemoryStore()}
	detectors := []*Detector{NewDetector(corpus, store), NewDetector(corpus, store)}

	var wg sync.WaitGroup
	statuses := make([]domain.DriftStatus, 8)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := detectors[i%2].Check(context.Background(), DefaultThreshold)
			if assert.NoError(t, err) {
				statuses[i] = res.Status
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, countStatus(statuses, domain.DriftStatusInitialized))
	assert.Equal(t, 7, countStatus(statuses, domain.DriftStatusStable))
	assert.Equal(t, int32(1), store.saves.Load())
}

func countStatus(statuses []domain.DriftStatus, want domain.DriftStatus) int {
	n := 0
	for _, s := range statuses {
		if s == want {
			n++
		}
	}
	return n
}
