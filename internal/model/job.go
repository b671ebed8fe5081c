package model

// Job statuses produced by the tracker. Callers may write other strings
// through the registry API; these are the only values this service emits.
const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
	JobStatusError     = "error"
)

// Job represents a tracked remote analysis. Payload holds the exact request
// body sent to the start endpoint so the submission can be replayed for
// monitoring and result retrieval. Params holds the caller-facing inputs
// (file paths and options) for display purposes only.
type Job struct {
	ID        string                 `json:"jobId" bson:"_id"`
	Method    string                 `json:"method" bson:"method"`
	Status    string                 `json:"status" bson:"status"`
	Timestamp int64                  `json:"timestamp" bson:"timestamp"`
	DatasetID string                 `json:"datasetId,omitempty" bson:"datasetId,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty" bson:"params,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty" bson:"payload,omitempty"`
	Results   interface{}            `json:"results,omitempty" bson:"results,omitempty"`
}

// MergeFrom merges an incoming record into an existing one. Non-empty
// incoming fields win, fields the caller omitted survive, and the timestamp
// is always refreshed. A status-only update therefore preserves previously
// cached results.
func (j *Job) MergeFrom(in Job) {
	if in.Method != "" {
		j.Method = in.Method
	}
	if in.Status != "" {
		j.Status = in.Status
	}
	if in.DatasetID != "" {
		j.DatasetID = in.DatasetID
	}
	if in.Params != nil {
		j.Params = in.Params
	}
	if in.Payload != nil {
		j.Payload = in.Payload
	}
	if in.Results != nil {
		j.Results = in.Results
	}
	j.Timestamp = NowMillis()
}

// HasPayload reports whether the job carries a replayable request body
func (j *Job) HasPayload() bool {
	return len(j.Payload) > 0
}
