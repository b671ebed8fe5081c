package store

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dandantas/tamarin/internal/model"
)

// DatasetStore tracks registered input files. It owns the files referenced
// by filePath and treePath: deleting a dataset also removes them from disk.
type DatasetStore struct {
	mu      sync.RWMutex
	coll    Collection[model.Dataset]
	records []model.Dataset
	index   map[string]int
}

// NewDatasetStore creates a dataset store and loads the full registry from
// the backing collection
func NewDatasetStore(coll Collection[model.Dataset]) (*DatasetStore, error) {
	records, err := coll.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset registry: %w", err)
	}

	s := &DatasetStore{
		coll:    coll,
		records: records,
		index:   make(map[string]int, len(records)),
	}
	for i, d := range records {
		s.index[d.ID] = i
	}

	return s, nil
}

// Add registers a dataset, assigning its identifier and timestamp when
// absent, and persists the registry. The assigned fields are written back
// into the caller's record.
func (s *DatasetStore) Add(d *model.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.SetDefaults()

	if _, exists := s.index[d.ID]; exists {
		return fmt.Errorf("dataset %s already exists", d.ID)
	}

	s.records = append(s.records, *d)
	s.index[d.ID] = len(s.records) - 1

	return s.persist()
}

// Get retrieves a dataset by ID
func (s *DatasetStore) Get(id string) (model.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return model.Dataset{}, false
	}
	return s.records[i], true
}

// GetAll returns a snapshot of all datasets in insertion order
func (s *DatasetStore) GetAll() []model.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Dataset, len(s.records))
	copy(out, s.records)
	return out
}

// Count returns the number of registered datasets
func (s *DatasetStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Update applies a partial update to a dataset and persists the registry
func (s *DatasetStore) Update(id string, patch model.DatasetPatch) (model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return model.Dataset{}, fmt.Errorf("dataset not found")
	}

	patch.Apply(&s.records[i])

	if err := s.persist(); err != nil {
		return model.Dataset{}, err
	}
	return s.records[i], nil
}

// Delete removes a dataset record and its backing files. Jobs and
// visualizations that reference the dataset are left untouched. The record
// is removed even when a backing file cannot be deleted; that failure is
// still reported. A file that is already missing is logged, not treated as
// a failure.
func (s *DatasetStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("dataset not found")
	}

	removed := s.records[i]
	s.records = append(s.records[:i], s.records[i+1:]...)
	s.reindex()

	if err := s.persist(); err != nil {
		return err
	}

	var fileErr error
	for _, path := range []string{removed.FilePath, removed.TreePath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				slog.Warn("Dataset file already missing", "dataset_id", id, "path", path)
				continue
			}
			slog.Error("Failed to remove dataset file", "dataset_id", id, "path", path, "error", err)
			if fileErr == nil {
				fileErr = fmt.Errorf("dataset removed but failed to delete file %s: %w", path, err)
			}
		}
	}

	return fileErr
}

// reindex rebuilds the id lookup after a removal shifts slice positions.
// Callers must hold the write lock.
func (s *DatasetStore) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, d := range s.records {
		s.index[d.ID] = i
	}
}

// persist rewrites the whole registry document. The in-memory state is kept
// even when the write fails so the registry stays serviceable; the error is
// surfaced to the caller. Callers must hold the write lock.
func (s *DatasetStore) persist() error {
	snapshot := make([]model.Dataset, len(s.records))
	copy(snapshot, s.records)

	if err := s.coll.SaveAll(snapshot); err != nil {
		slog.Error("Failed to persist dataset registry", "error", err)
		return fmt.Errorf("failed to persist dataset registry: %w", err)
	}
	return nil
}
