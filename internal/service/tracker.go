// Package service implements the tracking workflows that tie the registry
// stores to the remote Datamonkey API: submission, monitoring, result
// retrieval and visualization derivation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/model"
	"github.com/dandantas/tamarin/internal/store"
)

// Tracker orchestrates analysis submissions against the remote API and
// keeps the local registries consistent with what the remote reports
type Tracker struct {
	datasets *store.DatasetStore
	jobs     *store.JobStore
	vizzes   *store.VisualizationStore
	client   *datamonkey.Client
}

// NewTracker creates a tracker over the three registries and the API client
func NewTracker(
	datasets *store.DatasetStore,
	jobs *store.JobStore,
	vizzes *store.VisualizationStore,
	client *datamonkey.Client,
) *Tracker {
	return &Tracker{
		datasets: datasets,
		jobs:     jobs,
		vizzes:   vizzes,
		client:   client,
	}
}

// SubmitRequest describes one analysis submission. Either a registered
// dataset (DatasetID) or raw file paths supply the inputs; JobID switches
// the call into monitoring an already tracked job instead of creating a
// new one.
type SubmitRequest struct {
	Method        string                 `json:"method"`
	AlignmentPath string                 `json:"alignmentPath,omitempty"`
	TreePath      string                 `json:"treePath,omitempty"`
	DatasetID     string                 `json:"datasetId,omitempty"`
	DatasetName   string                 `json:"datasetName,omitempty"`
	Description   string                 `json:"description,omitempty"`
	Params        map[string]interface{} `json:"params,omitempty"`
	JobID         string                 `json:"jobId,omitempty"`
}

// SubmitResult is the non-throwing outcome of a submission or refresh.
// JobID carries the remote identifier; a submission the server rejected
// outright reports no identifier even though an error record is kept
// locally under a synthesized one.
type SubmitResult struct {
	Status    string `json:"status"`
	JobID     string `json:"jobId,omitempty"`
	Method    string `json:"method,omitempty"`
	JobStatus string `json:"jobStatus,omitempty"`
	Completed bool   `json:"completed,omitempty"`
	DatasetID string `json:"datasetId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SubmitJob uploads whatever inputs the method needs, builds the start
// payload, runs one start-or-monitor exchange and records the job. Two
// submissions with identical inputs create two distinct job records; reuse
// happens only through the upload cache and explicit JobID monitoring.
func (t *Tracker) SubmitJob(ctx context.Context, req SubmitRequest) SubmitResult {
	if req.JobID != "" {
		return t.RefreshJob(ctx, req.JobID)
	}

	spec, ok := model.MethodByName(req.Method)
	if !ok {
		return SubmitResult{
			Status: datamonkey.StatusError,
			Error:  fmt.Sprintf("unknown method %q (available: %s)", req.Method, strings.Join(model.MethodNames(), ", ")),
		}
	}

	alignmentPath := req.AlignmentPath
	treePath := req.TreePath
	datasetID := req.DatasetID
	if datasetID != "" {
		ds, found := t.datasets.Get(datasetID)
		if !found {
			return SubmitResult{Status: datamonkey.StatusError, Method: spec.Name, Error: fmt.Sprintf("dataset %s is not registered", datasetID)}
		}
		if alignmentPath == "" {
			alignmentPath = ds.FilePath
		}
		if treePath == "" {
			treePath = ds.TreePath
		}
	}

	var alignmentHandle, treeHandle string
	var alignmentSize int64

	if spec.Alignment != model.FileUnused && alignmentPath != "" {
		upload := t.client.UploadFile(ctx, alignmentPath, datamonkey.UploadOptions{
			Name:        req.DatasetName,
			Description: req.Description,
			Kind:        "alignment",
		})
		if upload.Status != datamonkey.StatusSuccess {
			return SubmitResult{Status: datamonkey.StatusError, Method: spec.Name, Error: upload.Error}
		}
		alignmentHandle = upload.FileHandle
		alignmentSize = upload.FileSize
	}

	if spec.Tree != model.FileUnused && treePath != "" {
		upload := t.client.UploadFile(ctx, treePath, datamonkey.UploadOptions{
			Name: req.DatasetName,
			Kind: "tree",
		})
		if upload.Status != datamonkey.StatusSuccess {
			// The alignment may already be uploaded at this point; the
			// content-addressed cache makes the retry cheap.
			return SubmitResult{Status: datamonkey.StatusError, Method: spec.Name, Error: upload.Error}
		}
		treeHandle = upload.FileHandle
	}

	payload, err := spec.BuildPayload(alignmentHandle, treeHandle, req.Params)
	if err != nil {
		return SubmitResult{Status: datamonkey.StatusError, Method: spec.Name, Error: err.Error()}
	}

	if datasetID == "" && (alignmentPath != "" || treePath != "") {
		datasetID = t.registerDataset(req, alignmentPath, treePath, alignmentSize)
	}

	start := t.client.StartOrMonitor(ctx, spec.Name, payload)

	job := model.Job{
		ID:        start.JobID,
		Method:    spec.Name,
		DatasetID: datasetID,
		Params:    displayParams(req.Params, alignmentPath, treePath),
		Payload:   payload,
	}

	switch start.Outcome {
	case datamonkey.StartFailed:
		job.Status = model.JobStatusError
		if err := t.jobs.Add(&job); err != nil {
			slog.Error("Failed to record failed submission", "method", spec.Name, "error", err)
		}
		slog.Warn("Submission failed",
			"method", spec.Name,
			"job_id", job.ID,
			"reason", start.Reason,
		)
		return SubmitResult{
			Status:    datamonkey.StatusError,
			JobID:     start.JobID,
			Method:    spec.Name,
			JobStatus: model.JobStatusError,
			DatasetID: datasetID,
			Error:     start.Reason,
		}

	case datamonkey.StartAlreadyComplete:
		job.Status = model.JobStatusCompleted
	default:
		job.Status = model.JobStatusPending
	}

	if err := t.jobs.Add(&job); err != nil {
		slog.Error("Failed to record submission", "method", spec.Name, "job_id", job.ID, "error", err)
	}

	slog.Info("Submitted analysis",
		"method", spec.Name,
		"job_id", job.ID,
		"job_status", job.Status,
		"dataset_id", datasetID,
	)

	return SubmitResult{
		Status:    datamonkey.StatusSuccess,
		JobID:     job.ID,
		Method:    spec.Name,
		JobStatus: job.Status,
		Completed: start.Completed(),
		DatasetID: datasetID,
	}
}

// RefreshJob replays a tracked job's stored payload through start-or-monitor
// and reconciles the local status with what the remote reports. A transport
// or server error leaves the record untouched; only an explicit remote
// failure moves the job to error, and a completed job never regresses to
// pending.
func (t *Tracker) RefreshJob(ctx context.Context, jobID string) SubmitResult {
	job, ok := t.jobs.Get(jobID)
	if !ok {
		return SubmitResult{Status: datamonkey.StatusError, Error: fmt.Sprintf("job %s is not tracked", jobID)}
	}
	if !job.HasPayload() {
		return SubmitResult{
			Status: datamonkey.StatusError,
			JobID:  job.ID,
			Method: job.Method,
			Error:  "job has no stored payload; re-submit the analysis to monitor it",
		}
	}

	start := t.client.StartOrMonitor(ctx, job.Method, job.Payload)

	switch start.Outcome {
	case datamonkey.StartFailed:
		if start.JobID == "" {
			return SubmitResult{
				Status:    datamonkey.StatusError,
				JobID:     job.ID,
				Method:    job.Method,
				JobStatus: job.Status,
				Error:     start.Reason,
			}
		}
		if job.Status != model.JobStatusError {
			if err := t.jobs.UpdateStatus(job.ID, model.JobStatusError, nil); err != nil {
				slog.Error("Failed to record job failure", "job_id", job.ID, "error", err)
			}
		}
		return SubmitResult{
			Status:    datamonkey.StatusError,
			JobID:     job.ID,
			Method:    job.Method,
			JobStatus: model.JobStatusError,
			Error:     start.Reason,
		}

	case datamonkey.StartAlreadyComplete:
		if job.Status != model.JobStatusCompleted {
			if err := t.jobs.UpdateStatus(job.ID, model.JobStatusCompleted, nil); err != nil {
				slog.Error("Failed to record job completion", "job_id", job.ID, "error", err)
			}
		}
		return SubmitResult{
			Status:    datamonkey.StatusSuccess,
			JobID:     job.ID,
			Method:    job.Method,
			JobStatus: model.JobStatusCompleted,
			Completed: true,
		}

	default:
		if job.Status == model.JobStatusCompleted {
			return SubmitResult{
				Status:    datamonkey.StatusSuccess,
				JobID:     job.ID,
				Method:    job.Method,
				JobStatus: model.JobStatusCompleted,
				Completed: true,
			}
		}
		return SubmitResult{
			Status:    datamonkey.StatusSuccess,
			JobID:     job.ID,
			Method:    job.Method,
			JobStatus: model.JobStatusPending,
		}
	}
}

// DeleteJob removes a job and cascades the deletion to every visualization
// that references it
func (t *Tracker) DeleteJob(jobID string) error {
	if err := t.jobs.Delete(jobID); err != nil {
		return err
	}

	removed, err := t.vizzes.DeleteByJob(jobID)
	if err != nil {
		return fmt.Errorf("job deleted but cascading to visualizations failed: %w", err)
	}
	if removed > 0 {
		slog.Info("Cascaded job deletion to visualizations", "job_id", jobID, "count", removed)
	}

	return nil
}

// StalePendingJobs returns the pending jobs with a stored payload whose
// last activity is at least minAge old, in insertion order
func (t *Tracker) StalePendingJobs(minAge time.Duration) []model.Job {
	cutoff := model.NowMillis() - minAge.Milliseconds()

	pending := t.jobs.Filter("", model.JobStatusPending, "")
	out := make([]model.Job, 0, len(pending))
	for _, j := range pending {
		if j.HasPayload() && j.Timestamp <= cutoff {
			out = append(out, j)
		}
	}
	return out
}

// CheckAPI probes the remote API's health endpoint
func (t *Tracker) CheckAPI(ctx context.Context) datamonkey.APIStatus {
	return t.client.CheckAPI(ctx)
}

// UploadFile pushes a local file through the content-addressed upload cache
func (t *Tracker) UploadFile(ctx context.Context, path string, opts datamonkey.UploadOptions) datamonkey.UploadResult {
	return t.client.UploadFile(ctx, path, opts)
}

// registerDataset records the raw input paths as a dataset so later
// submissions can reference them by ID. Registration failures are logged
// and do not block the submission.
func (t *Tracker) registerDataset(req SubmitRequest, alignmentPath, treePath string, fileSize int64) string {
	name := req.DatasetName
	if name == "" && alignmentPath != "" {
		name = filepath.Base(alignmentPath)
	}
	if name == "" {
		name = filepath.Base(treePath)
	}

	ds := model.Dataset{
		Name:        name,
		Description: req.Description,
		FilePath:    alignmentPath,
		TreePath:    treePath,
		FileSize:    fileSize,
	}
	if err := t.datasets.Add(&ds); err != nil {
		slog.Warn("Failed to register dataset for submission", "name", name, "error", err)
		return ""
	}
	return ds.ID
}

// displayParams assembles the caller-facing parameter snapshot stored on
// the job record
func displayParams(params map[string]interface{}, alignmentPath, treePath string) map[string]interface{} {
	out := make(map[string]interface{}, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	if alignmentPath != "" {
		out["alignment_file"] = alignmentPath
	}
	if treePath != "" {
		out["tree_file"] = treePath
	}
	return out
}
