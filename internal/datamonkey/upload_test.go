package datamonkey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const alignmentContent = ">seq1\nACGTACGT\n>seq2\nACGTACGA\n"

func hashOf(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func writeAlignment(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.fasta")
	if err := os.WriteFile(path, []byte(alignmentContent), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadFileCacheHit(t *testing.T) {
	var uploads atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": hashOf(alignmentContent), "name": "test.fasta"},
		})
	})
	mux.HandleFunc("POST /api/v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		uploads.Add(1)
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "/api/v1", 5*time.Second)
	result := client.UploadFile(t.Context(), writeAlignment(t), UploadOptions{Kind: "alignment"})

	if result.Status != StatusSuccess {
		t.Fatalf("Status = %q (%s), want success", result.Status, result.Error)
	}
	if !result.AlreadyExists {
		t.Error("AlreadyExists = false, want true on a cache hit")
	}
	if result.FileHandle != hashOf(alignmentContent) {
		t.Errorf("FileHandle = %q, want the content hash", result.FileHandle)
	}
	if uploads.Load() != 0 {
		t.Errorf("upload endpoint was hit %d times, want 0 on a cache hit", uploads.Load())
	}
}

func TestUploadFileCacheMiss(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"datasets":[]}`)
	})
	mux.HandleFunc("POST /api/v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var meta DatasetMeta
		if err := json.Unmarshal([]byte(r.FormValue("meta")), &meta); err != nil {
			http.Error(w, "bad meta", http.StatusBadRequest)
			return
		}
		if meta.Name != "test.fasta" || meta.Type != "alignment" {
			http.Error(w, "unexpected meta", http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file part", http.StatusBadRequest)
			return
		}

		json.NewEncoder(w).Encode(map[string]string{"file": hashOf(alignmentContent)})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "/api/v1", 5*time.Second)
	result := client.UploadFile(t.Context(), writeAlignment(t), UploadOptions{Kind: "alignment"})

	if result.Status != StatusSuccess {
		t.Fatalf("Status = %q (%s), want success", result.Status, result.Error)
	}
	if result.AlreadyExists {
		t.Error("AlreadyExists = true, want false on a fresh upload")
	}
	if result.FileHandle != hashOf(alignmentContent) {
		t.Errorf("FileHandle = %q, want the server-assigned handle", result.FileHandle)
	}
	if result.FileSize != int64(len(alignmentContent)) {
		t.Errorf("FileSize = %d, want %d", result.FileSize, len(alignmentContent))
	}
}

func TestUploadFileMissingLocalFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made for a missing local file")
	}))
	defer server.Close()

	client := NewClient(server.URL, "/api/v1", time.Second)
	result := client.UploadFile(t.Context(), "/nonexistent/path.fasta", UploadOptions{})

	if result.Status != StatusError {
		t.Fatalf("Status = %q, want error", result.Status)
	}
	if result.Error == "" {
		t.Error("Error detail is empty")
	}
}

func TestUploadFileExistenceCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "/api/v1", time.Second)
	result := client.UploadFile(t.Context(), writeAlignment(t), UploadOptions{})

	if result.Status != StatusError {
		t.Fatalf("Status = %q, want error when the existence check fails", result.Status)
	}
}

func TestUploadFileSkipExistenceCheck(t *testing.T) {
	var listings atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		listings.Add(1)
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("POST /api/v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"file": "handle-1"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "/api/v1", time.Second)
	result := client.UploadFile(t.Context(), writeAlignment(t), UploadOptions{SkipExistenceCheck: true})

	if result.Status != StatusSuccess {
		t.Fatalf("Status = %q (%s), want success", result.Status, result.Error)
	}
	if listings.Load() != 0 {
		t.Errorf("existence check ran %d times despite being skipped", listings.Load())
	}
	if result.FileHandle != "handle-1" {
		t.Errorf("FileHandle = %q, want handle-1", result.FileHandle)
	}
}
