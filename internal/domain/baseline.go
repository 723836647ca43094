package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// BaselineSlotDefault is the name of the single baseline slot.
const BaselineSlotDefault = "default"

// MeanVector stores a float64 vector as a JSON array in the database.
type MeanVector []float64

// Value implements the driver.Valuer interface for database serialization.
func (m MeanVector) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]float64(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *MeanVector) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan MeanVector")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, (*[]float64)(m))
}

// BaselineSnapshot is the database row backing the baseline slot.
type BaselineSnapshot struct {
	Name       string     `gorm:"type:text;primaryKey" json:"name"`
	MeanVector MeanVector `gorm:"type:text;not null" json:"mean_vector"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name for BaselineSnapshot.
func (BaselineSnapshot) TableName() string {
	return "baseline_snapshots"
}
