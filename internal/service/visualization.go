package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/timmy/dialogbot/internal/domain"
	"github.com/timmy/dialogbot/internal/drift"
	"github.com/timmy/dialogbot/internal/logger"
	"github.com/timmy/dialogbot/internal/reduce"
	"github.com/timmy/dialogbot/internal/render"
	"github.com/timmy/dialogbot/internal/storage"
)

// JobStatus is the state of the background retrain job.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// RenderResult describes one published visualization.
type RenderResult struct {
	Method reduce.Method `json:"method"`
	URL    string        `json:"url,omitempty"`
	Points int           `json:"points"`
	Error  string        `json:"error,omitempty"`
}

// VisualizationJob is a snapshot of the retrain job.
type VisualizationJob struct {
	Status     JobStatus      `json:"status"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Results    []RenderResult `json:"results,omitempty"`
}

// DefaultMaxPoints bounds the vectors a render reduces. Exact t-SNE keeps
// several n×n matrices in memory.
const DefaultMaxPoints = 2000

// VisualizationService projects corpus embeddings to 2D and publishes plots.
type VisualizationService struct {
	corpus    drift.CorpusSource
	sink      render.Sink
	storage   storage.ObjectStorage
	prefix    string
	maxPoints int
	pool      *ants.Pool

	mu  sync.Mutex
	job VisualizationJob
	wg  sync.WaitGroup
}

// VisualizationConfig holds VisualizationService settings.
type VisualizationConfig struct {
	Prefix    string // storage key prefix shared with the sink
	Workers   int
	MaxPoints int // larger corpora are subsampled; default DefaultMaxPoints
}

// NewVisualizationService creates the service and its worker pool.
func NewVisualizationService(corpus drift.CorpusSource, sink render.Sink, store storage.ObjectStorage, cfg *VisualizationConfig) (*VisualizationService, error) {
	workers, maxPoints := 1, DefaultMaxPoints
	var prefix string
	if cfg != nil {
		prefix = cfg.Prefix
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
		if cfg.MaxPoints > 0 {
			maxPoints = cfg.MaxPoints
		}
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &VisualizationService{
		corpus:    corpus,
		sink:      sink,
		storage:   store,
		prefix:    prefix,
		maxPoints: maxPoints,
		pool:      pool,
		job:       VisualizationJob{Status: JobStatusIdle},
	}, nil
}

// Render reduces the current corpus with method and publishes the result.
// Corpora larger than the configured point cap are subsampled first.
func (s *VisualizationService) Render(ctx context.Context, method reduce.Method) (*RenderResult, error) {
	method, err := reduce.ParseMethod(string(method))
	if err != nil {
		return nil, err
	}
	ctx = logger.WithField(ctx, logger.FieldMethod, string(method))

	entries, err := s.corpus.ListCorpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	vectors := domain.Vectors(entries)
	if len(vectors) > s.maxPoints {
		logger.With(logger.Fields{logger.FieldCount: len(vectors)}).
			Warn(ctx, "Corpus exceeds %d points, rendering an evenly spaced subsample", s.maxPoints)
		vectors = reduce.Subsample(vectors, s.maxPoints)
	}

	start := time.Now()
	points, err := reduce.Reduce(vectors, method)
	if err != nil {
		return nil, err
	}

	url, err := s.sink.Publish(ctx, method, points)
	if err != nil {
		return nil, fmt.Errorf("failed to publish visualization: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldCount:      len(points),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Visualization published")
	return &RenderResult{Method: method, URL: url, Points: len(points)}, nil
}

// Retrain re-renders every method in the background. Only one run may be
// in progress at a time.
func (s *VisualizationService) Retrain(ctx context.Context) (VisualizationJob, error) {
	s.mu.Lock()
	if s.job.Status == JobStatusRunning {
		s.mu.Unlock()
		return VisualizationJob{}, ErrRetrainRunning
	}
	now := time.Now().UTC()
	s.job = VisualizationJob{Status: JobStatusRunning, StartedAt: &now}
	snapshot := s.job
	s.mu.Unlock()

	// the job outlives the request
	jobCtx := logger.FromContext(ctx).WithContext(context.Background())

	s.wg.Add(1)
	if err := s.pool.Submit(func() {
		defer s.wg.Done()
		s.runRetrain(jobCtx)
	}); err != nil {
		s.wg.Done()
		s.finish(JobStatusFailed, nil)
		return VisualizationJob{}, fmt.Errorf("failed to schedule retrain: %w", err)
	}
	return snapshot, nil
}

func (s *VisualizationService) runRetrain(ctx context.Context) {
	status := JobStatusCompleted
	results := make([]RenderResult, 0, len(reduce.Methods))
	for _, m := range reduce.Methods {
		res, err := s.Render(ctx, m)
		if err != nil {
			logger.CtxError(ctx, "Retrain render %s failed: %v", m, err)
			status = JobStatusFailed
			results = append(results, RenderResult{Method: m, Error: err.Error()})
			continue
		}
		results = append(results, *res)
	}
	s.finish(status, results)
}

func (s *VisualizationService) finish(status JobStatus, results []RenderResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.job.Status = status
	s.job.FinishedAt = &now
	s.job.Results = results
}

// Status returns a snapshot of the retrain job.
func (s *VisualizationService) Status() VisualizationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.job
	job.Results = append([]RenderResult(nil), s.job.Results...)
	return job
}

// Wait blocks until every submitted retrain has finished.
func (s *VisualizationService) Wait() {
	s.wg.Wait()
}

// Open returns the stored image for method.
func (s *VisualizationService) Open(ctx context.Context, method reduce.Method) (io.ReadCloser, error) {
	method, err := reduce.ParseMethod(string(method))
	if err != nil {
		return nil, err
	}
	rc, err := s.storage.Download(ctx, s.prefix+render.FileName(method))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, render.FileName(method))
	}
	return rc, err
}

// Close waits for running jobs and releases the worker pool.
func (s *VisualizationService) Close() {
	s.wg.Wait()
	s.pool.Release()
}
