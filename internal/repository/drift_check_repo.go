package repository

import (
	"context"

	"github.com/timmy/dialogbot/internal/domain"
	"gorm.io/gorm"
)

// DriftCheckRepository stores the drift check history.
type DriftCheckRepository struct {
	db *gorm.DB
}

// NewDriftCheckRepository creates a new DriftCheckRepository.
func NewDriftCheckRepository(db *gorm.DB) *DriftCheckRepository {
	return &DriftCheckRepository{db: db}
}

// Create inserts a drift check record.
func (r *DriftCheckRepository) Create(ctx context.Context, check *domain.DriftCheck) error {
	return r.db.WithContext(ctx).Create(check).Error
}

// ListRecent returns the most recent checks, newest first.
func (r *DriftCheckRepository) ListRecent(ctx context.Context, limit int) ([]domain.DriftCheck, error) {
	if limit <= 0 {
		limit = 20
	}
	var checks []domain.DriftCheck
	err := r.db.WithContext(ctx).
		Order("checked_at DESC").
		Limit(limit).
		Find(&checks).Error
	return checks, err
}
