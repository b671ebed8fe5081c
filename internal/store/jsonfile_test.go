package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dandantas/tamarin/internal/model"
)

func TestJSONFileCollectionLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasets.json")
	coll := NewJSONFileCollection[model.Dataset](path)

	records, err := coll.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for a missing file", err)
	}
	if len(records) != 0 {
		t.Errorf("Load() = %d records, want 0", len(records))
	}
}

func TestJSONFileCollectionLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasets.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	coll := NewJSONFileCollection[model.Dataset](path)
	if _, err := coll.Load(); err == nil {
		t.Fatal("Load() error = nil, want parse error for malformed document")
	}
}

func TestJSONFileCollectionSaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	coll := NewJSONFileCollection[model.Job](path)

	if err := coll.SaveAll(nil); err != nil {
		t.Fatalf("SaveAll(nil) error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("empty registry serialized as %q, want %q", data, "[]")
	}
}

func TestJSONFileCollectionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	coll := NewJSONFileCollection[model.Job](path)

	in := []model.Job{
		{
			ID:        "job-1",
			Method:    "fel",
			Status:    model.JobStatusPending,
			Timestamp: 1700000000000,
			Payload:   map[string]interface{}{"alignment": "hash-a", "pvalue": 0.1},
		},
		{
			ID:        "job-2",
			Method:    "busted",
			Status:    model.JobStatusCompleted,
			Timestamp: 1700000001000,
			Results:   map[string]interface{}{"p": 0.02},
		},
	}

	if err := coll.SaveAll(in); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	out, err := NewJSONFileCollection[model.Job](path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("Load() = %d records, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].ID != in[i].ID || out[i].Method != in[i].Method || out[i].Status != in[i].Status {
			t.Errorf("record %d = %+v, want %+v", i, out[i], in[i])
		}
	}
	if out[0].Payload["alignment"] != "hash-a" {
		t.Errorf("payload did not survive the round trip: %v", out[0].Payload)
	}
}
