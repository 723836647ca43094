package domain

import "time"

// DriftStatus is the outcome of a drift check.
// Values include DriftStatusNoData, DriftStatusInitialized, DriftStatusStable,
// DriftStatusDrifted and DriftStatusError.
type DriftStatus string

const (
	DriftStatusNoData      DriftStatus = "no_data"
	DriftStatusInitialized DriftStatus = "initialized"
	DriftStatusStable      DriftStatus = "stable"
	DriftStatusDrifted     DriftStatus = "drifted"
	DriftStatusError       DriftStatus = "error"
)

// DriftCheck records one invocation of the drift detector.
type DriftCheck struct {
	ID              string      `gorm:"type:text;primaryKey" json:"id"`
	Status          DriftStatus `gorm:"type:text;not null;index:idx_drift_checks_status" json:"status"`
	Similarity      *float64    `json:"similarity,omitempty"`
	Threshold       float64     `gorm:"not null" json:"threshold"`
	CorpusSize      int         `gorm:"default:0" json:"corpus_size"`
	BaselineUpdated bool        `gorm:"default:false" json:"baseline_updated"`
	DurationMs      int64       `gorm:"default:0" json:"duration_ms"`
	Error           string      `gorm:"type:text" json:"error,omitempty"`
	CheckedAt       time.Time   `gorm:"not null;index:idx_drift_checks_checked_at" json:"checked_at"`
}

// TableName returns the database table name for DriftCheck.
func (DriftCheck) TableName() string {
	return "drift_checks"
}
