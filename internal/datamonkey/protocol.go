package datamonkey

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StartOutcome classifies one start-or-monitor exchange. The same endpoint
// both submits a new job and reports on a previously submitted one, so a
// single call can come back as freshly accepted, already complete, or
// failed.
type StartOutcome int

const (
	// StartAccepted means the job was accepted (or is still running)
	StartAccepted StartOutcome = iota
	// StartAlreadyComplete means the job already finished on the server
	StartAlreadyComplete
	// StartFailed covers both protocol errors (non-2xx, no job identifier)
	// and computation errors (2xx with a failed body, job identifier
	// present)
	StartFailed
)

// StartResult is the classified outcome of one start-or-monitor call
type StartResult struct {
	Outcome StartOutcome
	JobID   string
	Status  string // raw status string from the response body
	Reason  string // failure detail when Outcome is StartFailed
}

// Completed reports whether the exchange found the job already finished
func (r StartResult) Completed() bool {
	return r.Outcome == StartAlreadyComplete
}

// StartOrMonitor posts the payload to the method's start endpoint and
// classifies the response. It never returns an error: failures are carried
// in the result so callers can record them alongside any job identifier the
// server assigned.
func (c *Client) StartOrMonitor(ctx context.Context, method string, payload map[string]interface{}) StartResult {
	status, body, err := c.postJSON(ctx, "/methods/"+method+"-start", payload)
	if err != nil {
		return StartResult{
			Outcome: StartFailed,
			Reason:  fmt.Sprintf("start request failed: %v", err),
		}
	}
	return classifyStart(status, body)
}

// classifyStart maps the two status layers of a start response onto a
// StartOutcome. A non-2xx HTTP status is a protocol error and carries no
// job identifier. A 2xx response with body status "failed" is a
// computation error that still surfaces the identifier the server
// assigned. A body status of "complete" or "completed" marks the job as
// already finished; anything else counts as accepted and pending.
func classifyStart(httpStatus int, body []byte) StartResult {
	if httpStatus < 200 || httpStatus >= 300 {
		return StartResult{
			Outcome: StartFailed,
			Reason:  fmt.Sprintf("start endpoint returned HTTP %d: %s", httpStatus, truncateBody(body)),
		}
	}

	var parsed struct {
		JobID    string `json:"jobId"`
		JobIDAlt string `json:"job_id"`
		Status   string `json:"status"`
		Error    string `json:"error"`
		Message  string `json:"message"`
	}
	// An empty or non-JSON 2xx body classifies as accepted with no
	// identifier; the tracker synthesizes a local one in that case.
	_ = json.Unmarshal(body, &parsed)

	jobID := parsed.JobID
	if jobID == "" {
		jobID = parsed.JobIDAlt
	}

	switch strings.ToLower(parsed.Status) {
	case "failed":
		reason := parsed.Error
		if reason == "" {
			reason = parsed.Message
		}
		if reason == "" {
			reason = "job failed on the remote service"
		}
		return StartResult{Outcome: StartFailed, JobID: jobID, Status: parsed.Status, Reason: reason}
	case "complete", "completed":
		return StartResult{Outcome: StartAlreadyComplete, JobID: jobID, Status: parsed.Status}
	default:
		return StartResult{Outcome: StartAccepted, JobID: jobID, Status: parsed.Status}
	}
}
