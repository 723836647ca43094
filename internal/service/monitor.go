package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/dialogbot/internal/domain"
	"github.com/timmy/dialogbot/internal/drift"
	"github.com/timmy/dialogbot/internal/logger"
	"github.com/timmy/dialogbot/internal/repository"
)

// MonitorService runs drift checks and keeps their history.
type MonitorService struct {
	detector         *drift.Detector
	checks           *repository.DriftCheckRepository
	defaultThreshold float64
}

// NewMonitorService creates a new monitor service.
// checks may be nil, in which case no history is recorded.
func NewMonitorService(detector *drift.Detector, checks *repository.DriftCheckRepository, defaultThreshold float64) *MonitorService {
	if defaultThreshold == 0 {
		defaultThreshold = drift.DefaultThreshold
	}
	return &MonitorService{detector: detector, checks: checks, defaultThreshold: defaultThreshold}
}

// DefaultThreshold returns the threshold used when the caller supplies none.
func (s *MonitorService) DefaultThreshold() float64 {
	return s.defaultThreshold
}

// CheckDrift runs one drift check. A nil threshold uses the default.
// Every check, failed or not, is recorded.
func (s *MonitorService) CheckDrift(ctx context.Context, threshold *float64) (*domain.DriftCheck, error) {
	th := s.defaultThreshold
	if threshold != nil {
		th = *threshold
	}

	check := &domain.DriftCheck{
		ID:        uuid.NewString(),
		Threshold: th,
		CheckedAt: time.Now().UTC(),
	}
	ctx = logger.SetCheckID(ctx, check.ID)

	start := time.Now()
	res, err := s.detector.Check(ctx, th)
	check.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		check.Status = domain.DriftStatusError
		check.Error = err.Error()
		s.record(ctx, check)
		logger.With(nil).WithDuration(check.DurationMs).WithStatus(string(check.Status)).
			Error(ctx, "Drift check failed: %v", err)
		return check, fmt.Errorf("drift check failed: %w", err)
	}

	check.Status = res.Status
	check.Similarity = res.Similarity
	check.CorpusSize = res.CorpusSize
	check.BaselineUpdated = res.BaselineUpdated
	s.record(ctx, check)

	logger.With(nil).
		WithStatus(string(check.Status)).
		WithDuration(check.DurationMs).
		WithCount(check.CorpusSize).
		Info(ctx, "Drift check completed")
	return check, nil
}

func (s *MonitorService) record(ctx context.Context, check *domain.DriftCheck) {
	if s.checks == nil {
		return
	}
	if err := s.checks.Create(ctx, check); err != nil {
		logger.CtxWarn(ctx, "Failed to record drift check: %v", err)
	}
}

// ListChecks returns recent drift checks, newest first.
func (s *MonitorService) ListChecks(ctx context.Context, limit int) ([]domain.DriftCheck, error) {
	if s.checks == nil {
		return []domain.DriftCheck{}, nil
	}
	checks, err := s.checks.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list drift checks: %w", err)
	}
	return checks, nil
}
