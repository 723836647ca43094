package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timmy/dialogbot/internal/domain"
	"github.com/timmy/dialogbot/internal/drift"
	"github.com/timmy/dialogbot/internal/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FileBaselineStore keeps the baseline as a JSON document on disk. Updates
// hold an flock on a sibling ".lock" file, which serializes every process
// using the same path.
type FileBaselineStore struct {
	path string
}

// NewFileBaselineStore creates a store backed by path.
func NewFileBaselineStore(path string) *FileBaselineStore {
	return &FileBaselineStore{path: path}
}

func (s *FileBaselineStore) Load(context.Context) (*drift.Baseline, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	var b drift.Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode baseline %s: %w", s.path, err)
	}
	return &b, nil
}

func (s *FileBaselineStore) Update(ctx context.Context, fn drift.UpdateFunc) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}
	unlock, err := lockFile(ctx, s.path+".lock")
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}
	return s.write(next)
}

// Save replaces the slot under the same lock as Update.
func (s *FileBaselineStore) Save(ctx context.Context, b *drift.Baseline) error {
	return s.Update(ctx, func(*drift.Baseline) (*drift.Baseline, error) { return b, nil })
}

// write puts a temporary file next to the target and renames it into place.
func (s *FileBaselineStore) write(b *drift.Baseline) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".baseline-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp baseline: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace baseline: %w", err)
	}
	return nil
}

// DBBaselineStore keeps the baseline in the baseline_snapshots table.
type DBBaselineStore struct {
	db   *gorm.DB
	name string
}

// NewDBBaselineStore creates a store using the default slot.
func NewDBBaselineStore(db *gorm.DB) *DBBaselineStore {
	return &DBBaselineStore{db: db, name: domain.BaselineSlotDefault}
}

func (s *DBBaselineStore) Load(ctx context.Context) (*drift.Baseline, error) {
	var row domain.BaselineSnapshot
	err := s.db.WithContext(ctx).First(&row, "name = ?", s.name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	return snapshotBaseline(row), nil
}

// Update claims the slot row, locks it FOR UPDATE and writes the result of fn
// in the same transaction. The claim inserts an empty row when the slot does
// not exist yet, so concurrent first checks block on one row instead of both
// seeing an empty slot. SQLite ignores the row lock; its write lock taken by
// the claim serializes the transaction instead.
func (s *DBBaselineStore) Update(ctx context.Context, fn drift.UpdateFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := domain.BaselineSnapshot{Name: s.name, MeanVector: domain.MeanVector{}, UpdatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim).Error; err != nil {
			return fmt.Errorf("failed to claim baseline slot: %w", err)
		}

		var row domain.BaselineSnapshot
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "name = ?", s.name).Error
		if err != nil {
			return fmt.Errorf("failed to lock baseline: %w", err)
		}

		next, err := fn(snapshotBaseline(row))
		if err != nil || next == nil {
			return err
		}
		err = tx.Model(&domain.BaselineSnapshot{}).Where("name = ?", s.name).Updates(map[string]any{
			"mean_vector": domain.MeanVector(next.MeanVector),
			"updated_at":  time.Now(),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to save baseline: %w", err)
		}
		return nil
	})
}

// snapshotBaseline treats an unwritten claim row as an empty slot.
func snapshotBaseline(row domain.BaselineSnapshot) *drift.Baseline {
	if len(row.MeanVector) == 0 {
		return nil
	}
	return &drift.Baseline{MeanVector: slices.Clone([]float64(row.MeanVector))}
}

// Save replaces the slot unconditionally.
func (s *DBBaselineStore) Save(ctx context.Context, b *drift.Baseline) error {
	return s.Update(ctx, func(*drift.Baseline) (*drift.Baseline, error) { return b, nil })
}

var baselineKey = []byte("baseline/" + domain.BaselineSlotDefault)

// BadgerBaselineStore keeps the baseline in an embedded badger database.
type BadgerBaselineStore struct {
	db *badger.DB
}

// OpenBadgerBaselineStore opens (creating if needed) a badger database in dir.
// An empty dir opens an in-memory database.
func OpenBadgerBaselineStore(dir string) (*BadgerBaselineStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(logger.GetDefault().WithField(logger.FieldComponent, "badger"))

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerBaselineStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerBaselineStore) Close() error {
	return s.db.Close()
}

func (s *BadgerBaselineStore) Load(context.Context) (*drift.Baseline, error) {
	var b *drift.Baseline
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		b, err = readBaseline(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Update runs fn inside a badger read-write transaction. A conflicting
// commit from another goroutine makes badger return ErrConflict, and fn
// is retried against the new value.
func (s *BadgerBaselineStore) Update(ctx context.Context, fn drift.UpdateFunc) error {
	for {
		err := s.db.Update(func(txn *badger.Txn) error {
			current, err := readBaseline(txn)
			if err != nil {
				return err
			}
			next, err := fn(current)
			if err != nil || next == nil {
				return err
			}
			data, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("failed to encode baseline: %w", err)
			}
			return txn.Set(baselineKey, data)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Save replaces the slot unconditionally.
func (s *BadgerBaselineStore) Save(ctx context.Context, b *drift.Baseline) error {
	return s.Update(ctx, func(*drift.Baseline) (*drift.Baseline, error) { return b, nil })
}

func readBaseline(txn *badger.Txn) (*drift.Baseline, error) {
	item, err := txn.Get(baselineKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	var b *drift.Baseline
	err = item.Value(func(val []byte) error {
		b = &drift.Baseline{}
		return json.Unmarshal(val, b)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode baseline: %w", err)
	}
	return b, nil
}

var (
	_ drift.BaselineStore = (*FileBaselineStore)(nil)
	_ drift.BaselineStore = (*DBBaselineStore)(nil)
	_ drift.BaselineStore = (*BadgerBaselineStore)(nil)
)
