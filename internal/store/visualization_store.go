package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dandantas/tamarin/internal/model"
)

// VisualizationStore tracks visualizations derived from job results
type VisualizationStore struct {
	mu      sync.RWMutex
	coll    Collection[model.Visualization]
	records []model.Visualization
	index   map[string]int
}

// NewVisualizationStore creates a visualization store and loads the full
// registry from the backing collection
func NewVisualizationStore(coll Collection[model.Visualization]) (*VisualizationStore, error) {
	records, err := coll.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load visualization registry: %w", err)
	}

	s := &VisualizationStore{
		coll:    coll,
		records: records,
		index:   make(map[string]int, len(records)),
	}
	for i, v := range records {
		s.index[v.ID] = i
	}

	return s, nil
}

// Add registers a visualization, assigning its identifier and timestamp
// when absent, and persists the registry
func (s *VisualizationStore) Add(v *model.Visualization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v.SetDefaults()

	if _, exists := s.index[v.ID]; exists {
		return fmt.Errorf("visualization %s already exists", v.ID)
	}

	s.records = append(s.records, *v)
	s.index[v.ID] = len(s.records) - 1

	return s.persist()
}

// Get retrieves a visualization by ID
func (s *VisualizationStore) Get(id string) (model.Visualization, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return model.Visualization{}, false
	}
	return s.records[i], true
}

// GetAll returns a snapshot of all visualizations in insertion order
func (s *VisualizationStore) GetAll() []model.Visualization {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Visualization, len(s.records))
	copy(out, s.records)
	return out
}

// Count returns the number of registered visualizations
func (s *VisualizationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// GetByJob returns the visualizations referencing a job, in insertion order
func (s *VisualizationStore) GetByJob(jobID string) []model.Visualization {
	return s.filter(func(v model.Visualization) bool { return v.JobID == jobID })
}

// GetByDataset returns the visualizations referencing a dataset, in
// insertion order
func (s *VisualizationStore) GetByDataset(datasetID string) []model.Visualization {
	return s.filter(func(v model.Visualization) bool { return v.DatasetID == datasetID })
}

func (s *VisualizationStore) filter(keep func(model.Visualization) bool) []model.Visualization {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Visualization, 0)
	for _, v := range s.records {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Update applies a partial update to a visualization and persists the
// registry
func (s *VisualizationStore) Update(id string, patch model.VisualizationPatch) (model.Visualization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return model.Visualization{}, fmt.Errorf("visualization not found")
	}

	patch.Apply(&s.records[i])

	if err := s.persist(); err != nil {
		return model.Visualization{}, err
	}
	return s.records[i], nil
}

// Delete removes a visualization record and persists the registry
func (s *VisualizationStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("visualization not found")
	}

	s.records = append(s.records[:i], s.records[i+1:]...)
	s.reindex()

	return s.persist()
}

// DeleteByJob removes every visualization referencing the job and persists
// the registry once. It returns the number of records removed.
func (s *VisualizationStore) DeleteByJob(jobID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	removed := 0
	for _, v := range s.records {
		if v.JobID == jobID {
			removed++
			continue
		}
		kept = append(kept, v)
	}

	if removed == 0 {
		return 0, nil
	}

	s.records = kept
	s.reindex()

	return removed, s.persist()
}

func (s *VisualizationStore) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, v := range s.records {
		s.index[v.ID] = i
	}
}

func (s *VisualizationStore) persist() error {
	snapshot := make([]model.Visualization, len(s.records))
	copy(snapshot, s.records)

	if err := s.coll.SaveAll(snapshot); err != nil {
		slog.Error("Failed to persist visualization registry", "error", err)
		return fmt.Errorf("failed to persist visualization registry: %w", err)
	}
	return nil
}
