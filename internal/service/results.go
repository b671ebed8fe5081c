package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/model"
)

// ResultFetch is the non-throwing outcome of a result retrieval
type ResultFetch struct {
	Status     string      `json:"status"`
	JobID      string      `json:"jobId,omitempty"`
	Method     string      `json:"method,omitempty"`
	JobStatus  string      `json:"jobStatus,omitempty"`
	Results    interface{} `json:"results,omitempty"`
	FromCache  bool        `json:"fromCache,omitempty"`
	OutputFile string      `json:"outputFile,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// FetchResults retrieves the results of a tracked job. The stored payload
// is a hard precondition: without it no network call is attempted. The
// remote is asked to confirm completion first; fresh results are cached on
// the job record, and previously cached results are served when the remote
// is unreachable. A non-empty saveTo additionally writes the results to
// that path as indented JSON.
func (t *Tracker) FetchResults(ctx context.Context, jobID, saveTo string) ResultFetch {
	job, ok := t.jobs.Get(jobID)
	if !ok {
		return ResultFetch{Status: datamonkey.StatusError, Error: fmt.Sprintf("job %s is not tracked", jobID)}
	}
	if !job.HasPayload() {
		return ResultFetch{
			Status: datamonkey.StatusError,
			JobID:  job.ID,
			Method: job.Method,
			Error:  "job has no stored payload; cannot fetch results",
		}
	}

	start := t.client.StartOrMonitor(ctx, job.Method, job.Payload)

	if start.Outcome != datamonkey.StartAlreadyComplete {
		if job.Results != nil {
			return t.finishFetch(job, job.Results, true, saveTo)
		}
		if start.Outcome == datamonkey.StartFailed {
			return ResultFetch{
				Status:    datamonkey.StatusError,
				JobID:     job.ID,
				Method:    job.Method,
				JobStatus: job.Status,
				Error:     start.Reason,
			}
		}
		return ResultFetch{
			Status:    datamonkey.StatusError,
			JobID:     job.ID,
			Method:    job.Method,
			JobStatus: model.JobStatusPending,
			Error:     "job has not completed yet",
		}
	}

	results, err := t.client.FetchResult(ctx, job.Method, job.Payload)
	if err != nil {
		if job.Results != nil {
			slog.Warn("Serving cached results after fetch failure", "job_id", job.ID, "error", err)
			return t.finishFetch(job, job.Results, true, saveTo)
		}
		return ResultFetch{
			Status:    datamonkey.StatusError,
			JobID:     job.ID,
			Method:    job.Method,
			JobStatus: job.Status,
			Error:     err.Error(),
		}
	}

	if err := t.jobs.UpdateStatus(job.ID, model.JobStatusCompleted, results); err != nil {
		slog.Error("Failed to cache job results", "job_id", job.ID, "error", err)
	}

	return t.finishFetch(job, results, false, saveTo)
}

func (t *Tracker) finishFetch(job model.Job, results interface{}, fromCache bool, saveTo string) ResultFetch {
	fetch := ResultFetch{
		Status:    datamonkey.StatusSuccess,
		JobID:     job.ID,
		Method:    job.Method,
		JobStatus: model.JobStatusCompleted,
		Results:   results,
		FromCache: fromCache,
	}

	if saveTo != "" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err == nil {
			err = os.WriteFile(saveTo, data, 0o644)
		}
		if err != nil {
			return ResultFetch{
				Status: datamonkey.StatusError,
				JobID:  job.ID,
				Method: job.Method,
				Error:  fmt.Sprintf("failed to save results to %s: %v", saveTo, err),
			}
		}
		fetch.OutputFile = saveTo
	}

	return fetch
}
