package service

import (
	"fmt"

	"github.com/oliveagle/jsonpath"

	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/model"
)

// VizRequest describes a visualization derived from a tracked job. Data
// carries an inline payload; DataPath instead extracts it from the job's
// cached results with a JSONPath expression.
type VizRequest struct {
	JobID       string                 `json:"jobId"`
	DatasetID   string                 `json:"datasetId,omitempty"`
	Type        string                 `json:"type,omitempty"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Component   string                 `json:"component,omitempty"`
	Data        interface{}            `json:"data,omitempty"`
	DataPath    string                 `json:"dataPath,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// VizResult is the non-throwing outcome of a visualization creation
type VizResult struct {
	Status        string               `json:"status"`
	Visualization *model.Visualization `json:"visualization,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// CreateVisualization records a visualization for a tracked job. The
// dataset reference and type default from the job when omitted.
func (t *Tracker) CreateVisualization(req VizRequest) VizResult {
	job, ok := t.jobs.Get(req.JobID)
	if !ok {
		return VizResult{Status: datamonkey.StatusError, Error: fmt.Sprintf("job %s is not tracked", req.JobID)}
	}

	data := req.Data
	if req.DataPath != "" {
		if job.Results == nil {
			return VizResult{Status: datamonkey.StatusError, Error: "job has no cached results to extract from; fetch results first"}
		}
		extracted, err := extractResultValue(job.Results, req.DataPath)
		if err != nil {
			return VizResult{Status: datamonkey.StatusError, Error: err.Error()}
		}
		data = extracted
	}

	datasetID := req.DatasetID
	if datasetID == "" {
		datasetID = job.DatasetID
	}
	vizType := req.Type
	if vizType == "" {
		vizType = job.Method
	}

	viz := model.Visualization{
		JobID:       job.ID,
		DatasetID:   datasetID,
		Type:        vizType,
		Title:       req.Title,
		Description: req.Description,
		Component:   req.Component,
		Data:        data,
		Config:      req.Config,
		Metadata:    req.Metadata,
	}
	if err := viz.Validate(); err != nil {
		return VizResult{Status: datamonkey.StatusError, Error: err.Error()}
	}
	if err := t.vizzes.Add(&viz); err != nil {
		return VizResult{Status: datamonkey.StatusError, Error: err.Error()}
	}

	return VizResult{Status: datamonkey.StatusSuccess, Visualization: &viz}
}

// extractResultValue evaluates a JSONPath expression against decoded result
// JSON
func extractResultValue(results interface{}, expression string) (interface{}, error) {
	pattern, err := jsonpath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath expression '%s': %w", expression, err)
	}

	value, err := pattern.Lookup(results)
	if err != nil {
		return nil, fmt.Errorf("JSONPath expression '%s' returned no results: %w", expression, err)
	}

	return value, nil
}
