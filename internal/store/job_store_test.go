package store

import (
	"path/filepath"
	"testing"

	"github.com/dandantas/tamarin/internal/model"
)

func newJobStore(t *testing.T) *JobStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "global-jobs.json")
	s, err := NewJobStore(NewJSONFileCollection[model.Job](path))
	if err != nil {
		t.Fatalf("NewJobStore() error = %v", err)
	}
	return s
}

func TestJobStoreAddUpsertMerges(t *testing.T) {
	s := newJobStore(t)

	first := model.Job{
		ID:      "job-1",
		Method:  "fel",
		Status:  model.JobStatusPending,
		Payload: map[string]interface{}{"alignment": "hash-a"},
		Results: map[string]interface{}{"partial": true},
	}
	if err := s.Add(&first); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	update := model.Job{ID: "job-1", Status: model.JobStatusCompleted}
	if err := s.Add(&update); err != nil {
		t.Fatalf("second Add() error = %v", err)
	}

	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 (upsert must not create a second record)", s.Count())
	}

	got, _ := s.Get("job-1")
	if got.Status != model.JobStatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, model.JobStatusCompleted)
	}
	if got.Method != "fel" {
		t.Errorf("Method = %q, want it preserved across the merge", got.Method)
	}
	if got.Results == nil {
		t.Error("Results were dropped by a status-only upsert")
	}
	if got.Payload == nil {
		t.Error("Payload was dropped by a status-only upsert")
	}
}

func TestJobStoreAddAssignsLocalID(t *testing.T) {
	s := newJobStore(t)

	j := model.Job{Method: "gard", Status: model.JobStatusError}
	if err := s.Add(&j); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if j.ID == "" {
		t.Fatal("Add() left the job without an ID")
	}
}

func TestJobStoreUpdateStatus(t *testing.T) {
	s := newJobStore(t)

	j := model.Job{ID: "job-1", Method: "fel", Status: model.JobStatusPending}
	if err := s.Add(&j); err != nil {
		t.Fatal(err)
	}

	results := map[string]interface{}{"sites": []interface{}{1.0, 2.0}}
	if err := s.UpdateStatus("job-1", model.JobStatusCompleted, results); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	got, _ := s.Get("job-1")
	if got.Status != model.JobStatusCompleted || got.Results == nil {
		t.Errorf("UpdateStatus() produced %+v, want completed with results", got)
	}

	// nil results must leave the cached results alone
	if err := s.UpdateStatus("job-1", model.JobStatusCompleted, nil); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	got, _ = s.Get("job-1")
	if got.Results == nil {
		t.Error("UpdateStatus(nil) cleared cached results")
	}

	if err := s.UpdateStatus("job-absent", model.JobStatusError, nil); err == nil {
		t.Error("UpdateStatus() on unknown job error = nil, want not-found error")
	}
}

func TestJobStoreFilterPreservesOrder(t *testing.T) {
	s := newJobStore(t)

	jobs := []model.Job{
		{ID: "j1", Method: "fel", Status: model.JobStatusPending, DatasetID: "d1"},
		{ID: "j2", Method: "busted", Status: model.JobStatusCompleted, DatasetID: "d1"},
		{ID: "j3", Method: "fel", Status: model.JobStatusCompleted, DatasetID: "d2"},
		{ID: "j4", Method: "fel", Status: model.JobStatusCompleted, DatasetID: "d1"},
	}
	for i := range jobs {
		if err := s.Add(&jobs[i]); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name      string
		method    string
		status    string
		datasetID string
		want      []string
	}{
		{name: "by method", method: "fel", want: []string{"j1", "j3", "j4"}},
		{name: "by status", status: model.JobStatusCompleted, want: []string{"j2", "j3", "j4"}},
		{name: "by dataset", datasetID: "d1", want: []string{"j1", "j2", "j4"}},
		{name: "combined", method: "fel", status: model.JobStatusCompleted, datasetID: "d1", want: []string{"j4"}},
		{name: "no criteria returns all", want: []string{"j1", "j2", "j3", "j4"}},
		{name: "no matches", method: "gard", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Filter(tt.method, tt.status, tt.datasetID)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() = %d jobs, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Filter()[%d] = %q, want %q (insertion order)", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestJobStoreDelete(t *testing.T) {
	s := newJobStore(t)

	j := model.Job{ID: "job-1", Method: "fel", Status: model.JobStatusPending}
	if err := s.Add(&j); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete("job-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := s.Get("job-1"); ok {
		t.Error("job still present after Delete")
	}
	if err := s.Delete("job-1"); err == nil {
		t.Error("second Delete() error = nil, want not-found error")
	}
}
