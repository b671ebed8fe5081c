package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/model"
	"github.com/dandantas/tamarin/internal/service"
	"github.com/dandantas/tamarin/internal/store"
)

// JobHandler handles job tracking and submission operations
type JobHandler struct {
	jobs    *store.JobStore
	tracker *service.Tracker
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs *store.JobStore, tracker *service.Tracker) *JobHandler {
	return &JobHandler{
		jobs:    jobs,
		tracker: tracker,
	}
}

// JobListResponse represents the job list response
type JobListResponse struct {
	Total   int         `json:"total"`
	Results []model.Job `json:"results"`
}

// List handles GET /api/v1/jobs
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("method")
	status := r.URL.Query().Get("status")
	datasetID := r.URL.Query().Get("dataset_id")

	jobs := h.jobs.Filter(method, status, datasetID)

	writeJSON(w, http.StatusOK, JobListResponse{
		Total:   len(jobs),
		Results: jobs,
	})
}

// Submit handles POST /api/v1/jobs
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := h.tracker.SubmitJob(r.Context(), req)

	if res.Status == datamonkey.StatusError {
		if isCallerFault(res.Error) {
			writeError(w, http.StatusBadRequest, res.Error)
			return
		}
		if res.JobID == "" && res.JobStatus == "" {
			writeError(w, http.StatusBadGateway, res.Error)
			return
		}
		// The remote rejected the computation but a tracked record exists;
		// the body carries its identifier and the failure reason.
		writeJSON(w, http.StatusOK, res)
		return
	}

	statusCode := http.StatusOK
	if res.JobStatus == model.JobStatusPending {
		statusCode = http.StatusAccepted
	}
	writeJSON(w, statusCode, res)
}

// Get handles GET /api/v1/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, ok := h.jobs.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", id))
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// Delete handles DELETE /api/v1/jobs/{id}. Visualizations derived from the
// job are removed with it.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	if err := h.tracker.DeleteJob(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "job deleted successfully",
	})
}

// Refresh handles POST /api/v1/jobs/{id}/refresh
func (h *JobHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	id := strings.TrimSuffix(path, "/refresh")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	res := h.tracker.RefreshJob(r.Context(), id)

	if res.Status == datamonkey.StatusError {
		switch {
		case strings.Contains(res.Error, "is not tracked"):
			writeError(w, http.StatusNotFound, res.Error)
		case strings.Contains(res.Error, "no stored payload"):
			writeError(w, http.StatusConflict, res.Error)
		case res.JobStatus == model.JobStatusError:
			// The remote reported a computation failure; the record moved
			// to error and the body carries the reason.
			writeJSON(w, http.StatusOK, res)
		default:
			writeError(w, http.StatusBadGateway, res.Error)
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// FetchResultsRequest represents the result retrieval request
type FetchResultsRequest struct {
	SaveTo string `json:"saveTo,omitempty"`
}

// Results handles POST /api/v1/jobs/{id}/results
func (h *JobHandler) Results(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	id := strings.TrimSuffix(path, "/results")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	var req FetchResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := h.tracker.FetchResults(r.Context(), id, req.SaveTo)

	if res.Status == datamonkey.StatusError {
		switch {
		case strings.Contains(res.Error, "is not tracked"):
			writeError(w, http.StatusNotFound, res.Error)
		case strings.Contains(res.Error, "no stored payload"), strings.Contains(res.Error, "has not completed"):
			writeError(w, http.StatusConflict, res.Error)
		default:
			writeError(w, http.StatusBadGateway, res.Error)
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// isCallerFault reports whether a submission error is attributable to the
// request rather than the remote service
func isCallerFault(msg string) bool {
	markers := []string{
		"unknown method",
		"unknown parameter",
		"parameter",
		"requires a",
		"is not registered",
		"file not found",
	}
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
