package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dandantas/tamarin/internal/model"
)

// JobStore tracks remote analysis jobs keyed by their remote identifier.
// Two jobs submitted with identical inputs are two distinct records; there
// is no content-based deduplication.
type JobStore struct {
	mu      sync.RWMutex
	coll    Collection[model.Job]
	records []model.Job
	index   map[string]int
}

// NewJobStore creates a job store and loads the full registry from the
// backing collection
func NewJobStore(coll Collection[model.Job]) (*JobStore, error) {
	records, err := coll.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load job registry: %w", err)
	}

	s := &JobStore{
		coll:    coll,
		records: records,
		index:   make(map[string]int, len(records)),
	}
	for i, j := range records {
		s.index[j.ID] = i
	}

	return s, nil
}

// Add upserts a job record. A new ID inserts; an existing ID merges the
// incoming record field by field (non-empty incoming fields win, omitted
// fields survive) and always refreshes the timestamp. The canonical record
// is written back into the caller's value.
func (s *JobStore) Add(job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = model.NewLocalJobID()
	}

	if i, exists := s.index[job.ID]; exists {
		s.records[i].MergeFrom(*job)
		*job = s.records[i]
	} else {
		job.Timestamp = model.NowMillis()
		s.records = append(s.records, *job)
		s.index[job.ID] = len(s.records) - 1
	}

	return s.persist()
}

// Get retrieves a job by ID
func (s *JobStore) Get(id string) (model.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return model.Job{}, false
	}
	return s.records[i], true
}

// GetAll returns a snapshot of all jobs in insertion order
func (s *JobStore) GetAll() []model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Job, len(s.records))
	copy(out, s.records)
	return out
}

// Count returns the number of tracked jobs
func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Filter returns the jobs matching every non-empty criterion, in insertion
// order
func (s *JobStore) Filter(method, status, datasetID string) []model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Job, 0)
	for _, j := range s.records {
		if method != "" && j.Method != method {
			continue
		}
		if status != "" && j.Status != status {
			continue
		}
		if datasetID != "" && j.DatasetID != datasetID {
			continue
		}
		out = append(out, j)
	}
	return out
}

// UpdateStatus sets a job's status, optionally attaches results (nil leaves
// the cached results alone), refreshes the timestamp and persists
func (s *JobStore) UpdateStatus(id, status string, results interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("job not found")
	}

	s.records[i].Status = status
	if results != nil {
		s.records[i].Results = results
	}
	s.records[i].Timestamp = model.NowMillis()

	return s.persist()
}

// Delete removes a job record and persists the registry. Cascading the
// delete to the job's visualizations is the tracker's responsibility.
func (s *JobStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("job not found")
	}

	s.records = append(s.records[:i], s.records[i+1:]...)
	s.reindex()

	return s.persist()
}

func (s *JobStore) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, j := range s.records {
		s.index[j.ID] = i
	}
}

func (s *JobStore) persist() error {
	snapshot := make([]model.Job, len(s.records))
	copy(snapshot, s.records)

	if err := s.coll.SaveAll(snapshot); err != nil {
		slog.Error("Failed to persist job registry", "error", err)
		return fmt.Errorf("failed to persist job registry: %w", err)
	}
	return nil
}
