package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/model"
	"github.com/dandantas/tamarin/internal/service"
	"github.com/dandantas/tamarin/internal/store"
	"github.com/dandantas/tamarin/pkg/middleware"
)

const alignmentContent = ">seq1\nACGTACGTACGT\n>seq2\nACGTACGAACGT\n"

type testAPI struct {
	server     *httptest.Server
	datasets   *store.DatasetStore
	jobs       *store.JobStore
	vizzes     *store.VisualizationStore
	uploadsDir string
}

// newTestAPI wires stores, tracker, handlers and middleware exactly the way
// the server binary does, on top of a remote API mock.
func newTestAPI(t *testing.T, remoteURL string) *testAPI {
	t.Helper()
	dir := t.TempDir()

	datasets, err := store.NewDatasetStore(store.NewJSONFileCollection[model.Dataset](filepath.Join(dir, "datasets.json")))
	if err != nil {
		t.Fatalf("NewDatasetStore: %v", err)
	}
	jobs, err := store.NewJobStore(store.NewJSONFileCollection[model.Job](filepath.Join(dir, "global-jobs.json")))
	if err != nil {
		t.Fatalf("NewJobStore: %v", err)
	}
	vizzes, err := store.NewVisualizationStore(store.NewJSONFileCollection[model.Visualization](filepath.Join(dir, "visualizations.json")))
	if err != nil {
		t.Fatalf("NewVisualizationStore: %v", err)
	}

	client := datamonkey.NewClient(remoteURL, "/api/v1", 5*time.Second)
	tracker := service.NewTracker(datasets, jobs, vizzes, client)

	uploadsDir := filepath.Join(dir, "uploads")
	router := NewRouter(
		NewDatasetHandler(datasets, uploadsDir),
		NewJobHandler(jobs, tracker),
		NewVisualizationHandler(vizzes, tracker),
		NewMethodHandler(),
		NewHealthHandler(tracker, datasets, jobs, vizzes, "test"),
		middleware.CORSConfig{
			AllowedOrigins: "*",
			AllowedMethods: "GET, POST, PATCH, DELETE, OPTIONS",
			AllowedHeaders: "Content-Type, X-Correlation-ID",
			MaxAge:         300,
		},
	)

	server := httptest.NewServer(router.Handler())
	t.Cleanup(server.Close)

	return &testAPI{
		server:     server,
		datasets:   datasets,
		jobs:       jobs,
		vizzes:     vizzes,
		uploadsDir: uploadsDir,
	}
}

// doJSON runs one request against the test server and returns the response
// with its body consumed
func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, data
}

func decodeBody(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode response %q: %v", data, err)
	}
}

func writeAlignment(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "primates.fasta")
	if err := os.WriteFile(path, []byte(alignmentContent), 0o644); err != nil {
		t.Fatalf("write alignment: %v", err)
	}
	return path
}

func TestJobSubmissionLifecycle(t *testing.T) {
	var startCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("POST /api/v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"file": "h-align"})
	})
	mux.HandleFunc("POST /api/v1/methods/fel-start", func(w http.ResponseWriter, r *http.Request) {
		status := "queued"
		if startCalls.Add(1) > 1 {
			status = "complete"
		}
		json.NewEncoder(w).Encode(map[string]string{"jobId": "fel-1", "status": status})
	})
	mux.HandleFunc("POST /api/v1/methods/fel-result", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"MLE":{"content":[[0.1,0.25]]}}`)
	})
	remote := httptest.NewServer(mux)
	defer remote.Close()

	api := newTestAPI(t, remote.URL)

	// Submit
	resp, body := doJSON(t, http.MethodPost, api.server.URL+"/api/v1/jobs", map[string]interface{}{
		"method":        "fel",
		"alignmentPath": writeAlignment(t),
		"datasetName":   "primates",
		"params":        map[string]interface{}{"pvalue": 0.05},
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d, body %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Correlation-ID") == "" {
		t.Error("response carries no X-Correlation-ID header")
	}

	var submit service.SubmitResult
	decodeBody(t, body, &submit)
	if submit.JobID != "fel-1" || submit.JobStatus != model.JobStatusPending {
		t.Fatalf("submit result = %s/%s, want fel-1/pending", submit.JobID, submit.JobStatus)
	}
	if !strings.HasPrefix(submit.DatasetID, "dataset_") {
		t.Errorf("DatasetID = %q, want a registered dataset", submit.DatasetID)
	}

	// Fetch the record
	resp, body = doJSON(t, http.MethodGet, api.server.URL+"/api/v1/jobs/fel-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, body %s", resp.StatusCode, body)
	}
	var job model.Job
	decodeBody(t, body, &job)
	if job.Method != "fel" || !job.HasPayload() {
		t.Errorf("job = %+v, want method fel with payload", job)
	}

	// Refresh moves it to completed
	resp, body = doJSON(t, http.MethodPost, api.server.URL+"/api/v1/jobs/fel-1/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", resp.StatusCode, body)
	}
	var refresh service.SubmitResult
	decodeBody(t, body, &refresh)
	if refresh.JobStatus != model.JobStatusCompleted || !refresh.Completed {
		t.Errorf("refresh result = %+v, want completed", refresh)
	}

	// Retrieve results
	resp, body = doJSON(t, http.MethodPost, api.server.URL+"/api/v1/jobs/fel-1/results", map[string]interface{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results status = %d, body %s", resp.StatusCode, body)
	}
	var fetched service.ResultFetch
	decodeBody(t, body, &fetched)
	if fetched.Results == nil || fetched.FromCache {
		t.Errorf("results = %+v, want fresh results", fetched)
	}

	// Filtered listing
	resp, body = doJSON(t, http.MethodGet, api.server.URL+"/api/v1/jobs?status=completed", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var listing JobListResponse
	decodeBody(t, body, &listing)
	if listing.Total != 1 || listing.Results[0].ID != "fel-1" {
		t.Errorf("completed listing = %+v, want only fel-1", listing)
	}

	// Delete, then the record is gone
	resp, body = doJSON(t, http.MethodDelete, api.server.URL+"/api/v1/jobs/fel-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", resp.StatusCode, body)
	}
	resp, _ = doJSON(t, http.MethodGet, api.server.URL+"/api/v1/jobs/fel-1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestSubmitRejections(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		api := newTestAPI(t, "http://localhost:0")

		resp, err := http.Post(api.server.URL+"/api/v1/jobs", "application/json", strings.NewReader("{not json"))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		api := newTestAPI(t, "http://localhost:0")

		resp, body := doJSON(t, http.MethodPost, api.server.URL+"/api/v1/jobs", map[string]interface{}{
			"method": "phyml",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, body %s", resp.StatusCode, body)
		}
		var errResp ErrorResponse
		decodeBody(t, body, &errResp)
		if !strings.Contains(errResp.Message, "unknown method") {
			t.Errorf("message = %q, want the unknown-method detail", errResp.Message)
		}
	})

	t.Run("remote unreachable during upload", func(t *testing.T) {
		remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		defer remote.Close()
		api := newTestAPI(t, remote.URL)

		resp, body := doJSON(t, http.MethodPost, api.server.URL+"/api/v1/jobs", map[string]interface{}{
			"method":        "fel",
			"alignmentPath": writeAlignment(t),
		})
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("status = %d, body %s, want 502", resp.StatusCode, body)
		}
		if api.jobs.Count() != 0 {
			t.Errorf("jobs.Count() = %d, want 0 when nothing was submitted", api.jobs.Count())
		}
	})

	t.Run("start rejected by the server", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v1/datasets", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		})
		mux.HandleFunc("POST /api/v1/datasets", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"file": "h-align"})
		})
		mux.HandleFunc("POST /api/v1/methods/fel-start", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusInternalServerError)
		})
		remote := httptest.NewServer(mux)
		defer remote.Close()
		api := newTestAPI(t, remote.URL)

		resp, body := doJSON(t, http.MethodPost, api.server.URL+"/api/v1/jobs", map[string]interface{}{
			"method":        "fel",
			"alignmentPath": writeAlignment(t),
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %s, want 200 with an error body", resp.StatusCode, body)
		}

		var raw map[string]interface{}
		decodeBody(t, body, &raw)
		if raw["status"] != "error" {
			t.Errorf("status field = %v, want error", raw["status"])
		}
		if _, ok := raw["jobId"]; ok {
			t.Error("body carries a jobId, want none for a rejected start")
		}

		// The failure is still tracked locally under a synthesized id
		tracked := api.jobs.Filter("fel", model.JobStatusError, "")
		if len(tracked) != 1 || !strings.HasPrefix(tracked[0].ID, "job_") {
			t.Errorf("tracked = %+v, want one synthesized error record", tracked)
		}
	})
}

func TestDatasetEndpoints(t *testing.T) {
	api := newTestAPI(t, "http://localhost:0")

	// Register server-local paths via JSON
	resp, body := doJSON(t, http.MethodPost, api.server.URL+"/api/v1/datasets", map[string]interface{}{
		"name":     "primates",
		"filePath": writeAlignment(t),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}
	var registered model.Dataset
	decodeBody(t, body, &registered)
	if !strings.HasPrefix(registered.ID, "dataset_") || !registered.HasAlignment {
		t.Errorf("dataset = %+v, want generated id and alignment flag", registered)
	}

	// Upload a file via multipart
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", "uploaded"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fw, err := mw.CreateFormFile("file", "aln.fasta")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(alignmentContent)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	resp, err = http.Post(api.server.URL+"/api/v1/datasets", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("multipart post: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("multipart create status = %d, body %s", resp.StatusCode, body)
	}
	var uploaded model.Dataset
	decodeBody(t, body, &uploaded)
	if !strings.HasPrefix(uploaded.FilePath, api.uploadsDir) {
		t.Errorf("FilePath = %q, want a path under the uploads dir", uploaded.FilePath)
	}
	if content, err := os.ReadFile(uploaded.FilePath); err != nil || string(content) != alignmentContent {
		t.Errorf("stored file content mismatch: %v", err)
	}

	// Both records are listed
	resp, body = doJSON(t, http.MethodGet, api.server.URL+"/api/v1/datasets", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var listing DatasetListResponse
	decodeBody(t, body, &listing)
	if listing.Total != 2 {
		t.Errorf("Total = %d, want 2", listing.Total)
	}

	// Patch metadata
	resp, body = doJSON(t, http.MethodPatch, api.server.URL+"/api/v1/datasets/"+registered.ID, map[string]interface{}{
		"description": "primate mtDNA",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", resp.StatusCode, body)
	}
	var patched model.Dataset
	decodeBody(t, body, &patched)
	if patched.Description != "primate mtDNA" {
		t.Errorf("Description = %q, want the patched text", patched.Description)
	}

	// Delete removes the record and its stored file
	resp, body = doJSON(t, http.MethodDelete, api.server.URL+"/api/v1/datasets/"+uploaded.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", resp.StatusCode, body)
	}
	if _, err := os.Stat(uploaded.FilePath); !os.IsNotExist(err) {
		t.Errorf("stored file still exists after delete (err = %v)", err)
	}
	resp, _ = doJSON(t, http.MethodGet, api.server.URL+"/api/v1/datasets/"+uploaded.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}

	// Validation failures surface as 400
	resp, _ = doJSON(t, http.MethodPost, api.server.URL+"/api/v1/datasets", map[string]interface{}{
		"filePath": "/tmp/unnamed.fasta",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("nameless create status = %d, want 400", resp.StatusCode)
	}
}

func TestMethodEndpoints(t *testing.T) {
	api := newTestAPI(t, "http://localhost:0")

	resp, body := doJSON(t, http.MethodGet, api.server.URL+"/api/v1/methods", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var listing MethodListResponse
	decodeBody(t, body, &listing)
	if listing.Total != len(model.Methods()) {
		t.Errorf("Total = %d, want %d", listing.Total, len(model.Methods()))
	}

	var fel *MethodInfo
	for i := range listing.Results {
		if listing.Results[i].Name == "fel" {
			fel = &listing.Results[i]
			break
		}
	}
	if fel == nil {
		t.Fatal("fel is missing from the catalog listing")
	}
	if fel.Alignment != "required" || fel.Tree != "optional" {
		t.Errorf("fel inputs = %s/%s, want required/optional", fel.Alignment, fel.Tree)
	}

	// Lookup is case-insensitive
	resp, body = doJSON(t, http.MethodGet, api.server.URL+"/api/v1/methods/FEL", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, body %s", resp.StatusCode, body)
	}
	var method MethodInfo
	decodeBody(t, body, &method)
	if method.Name != "fel" {
		t.Errorf("Name = %q, want fel", method.Name)
	}

	resp, _ = doJSON(t, http.MethodGet, api.server.URL+"/api/v1/methods/phyml", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown method status = %d, want 404", resp.StatusCode)
	}
}

func TestVisualizationEndpoints(t *testing.T) {
	api := newTestAPI(t, "http://localhost:0")

	if err := api.jobs.Add(&model.Job{
		ID:        "fel-1",
		Method:    "fel",
		Status:    model.JobStatusCompleted,
		DatasetID: "dataset_1_abc",
		Results: map[string]interface{}{
			"MLE": map[string]interface{}{
				"content": []interface{}{[]interface{}{0.1, 0.25}},
			},
		},
	}); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	// Create from the job's cached results
	resp, body := doJSON(t, http.MethodPost, api.server.URL+"/api/v1/visualizations", map[string]interface{}{
		"jobId":    "fel-1",
		"title":    "Site rates",
		"dataPath": "$.MLE.content",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}
	var viz model.Visualization
	decodeBody(t, body, &viz)
	if !strings.HasPrefix(viz.ID, "viz_") || viz.Type != "fel" || viz.DatasetID != "dataset_1_abc" {
		t.Errorf("viz = %+v, want generated id with job defaults", viz)
	}
	if viz.Data == nil {
		t.Error("Data is nil, want the extracted result slice")
	}

	// Unknown job and unmatched path
	resp, _ = doJSON(t, http.MethodPost, api.server.URL+"/api/v1/visualizations", map[string]interface{}{
		"jobId": "nope",
		"data":  map[string]interface{}{"x": 1},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown job status = %d, want 404", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, api.server.URL+"/api/v1/visualizations", map[string]interface{}{
		"jobId":    "fel-1",
		"dataPath": "$.missing.path",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unmatched path status = %d, want 400", resp.StatusCode)
	}

	// Filtered listing
	resp, body = doJSON(t, http.MethodGet, api.server.URL+"/api/v1/visualizations?job_id=fel-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var listing VisualizationListResponse
	decodeBody(t, body, &listing)
	if listing.Total != 1 {
		t.Errorf("Total = %d, want 1", listing.Total)
	}

	// Patch and delete
	resp, body = doJSON(t, http.MethodPatch, api.server.URL+"/api/v1/visualizations/"+viz.ID, map[string]interface{}{
		"title": "Renamed",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", resp.StatusCode, body)
	}
	var patched model.Visualization
	decodeBody(t, body, &patched)
	if patched.Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", patched.Title)
	}

	resp, _ = doJSON(t, http.MethodDelete, api.server.URL+"/api/v1/visualizations/"+viz.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, api.server.URL+"/api/v1/visualizations/"+viz.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "version": "1.4.0"})
	})
	remote := httptest.NewServer(mux)
	api := newTestAPI(t, remote.URL)

	resp, body := doJSON(t, http.MethodGet, api.server.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	var health HealthResponse
	decodeBody(t, body, &health)
	if health.Status != "healthy" || health.Version != "test" {
		t.Errorf("health = %+v, want healthy/test", health)
	}

	resp, body = doJSON(t, http.MethodGet, api.server.URL+"/ready", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d, body %s", resp.StatusCode, body)
	}
	var ready ReadyResponse
	decodeBody(t, body, &ready)
	if !ready.Ready || ready.Datamonkey != "reachable" {
		t.Errorf("ready = %+v, want reachable", ready)
	}

	// Readiness follows the remote API
	remote.Close()
	resp, body = doJSON(t, http.MethodGet, api.server.URL+"/ready", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d, want 503 with the remote down", resp.StatusCode)
	}
	decodeBody(t, body, &ready)
	if ready.Ready || ready.Datamonkey != "unreachable" {
		t.Errorf("ready = %+v, want unreachable", ready)
	}
}

func TestRouterRejectsUnsupportedMethods(t *testing.T) {
	api := newTestAPI(t, "http://localhost:0")

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/v1/jobs"},
		{http.MethodPatch, "/api/v1/jobs/fel-1"},
		{http.MethodDelete, "/api/v1/methods"},
		{http.MethodGet, "/api/v1/jobs/fel-1/refresh"},
	} {
		resp, _ := doJSON(t, tc.method, api.server.URL+tc.path, nil)
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want 405", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestPreflightRequests(t *testing.T) {
	api := newTestAPI(t, "http://localhost:0")

	req, err := http.NewRequest(http.MethodOptions, api.server.URL+"/api/v1/jobs", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Origin", "https://observatory.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
