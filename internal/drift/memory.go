package drift

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps the baseline in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	baseline *Baseline
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (*Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBaseline(s.baseline), nil
}

// Save replaces the slot unconditionally.
func (s *MemoryStore) Save(_ context.Context, baseline *Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = cloneBaseline(baseline)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(cloneBaseline(s.baseline))
	if err != nil || next == nil {
		return err
	}
	s.baseline = cloneBaseline(next)
	return nil
}

func cloneBaseline(b *Baseline) *Baseline {
	if b == nil {
		return nil
	}
	return &Baseline{MeanVector: slices.Clone(b.MeanVector)}
}

var _ BaselineStore = (*MemoryStore)(nil)
