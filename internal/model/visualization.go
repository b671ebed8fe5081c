package model

import "errors"

// Visualization represents a rendered (or renderable) view over the results
// of a tracked job. Data holds the extracted result slice the view consumes;
// Config holds rendering options; Metadata is free-form caller bookkeeping.
type Visualization struct {
	ID          string                 `json:"vizId" bson:"_id"`
	JobID       string                 `json:"jobId" bson:"jobId"`
	DatasetID   string                 `json:"datasetId,omitempty" bson:"datasetId,omitempty"`
	Type        string                 `json:"type" bson:"type"`
	Title       string                 `json:"title,omitempty" bson:"title,omitempty"`
	Description string                 `json:"description,omitempty" bson:"description,omitempty"`
	Component   string                 `json:"component,omitempty" bson:"component,omitempty"`
	Data        interface{}            `json:"data,omitempty" bson:"data,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty" bson:"config,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Timestamp   int64                  `json:"timestamp" bson:"timestamp"`
}

// Validate validates a visualization record before registration
func (v *Visualization) Validate() error {
	if v.JobID == "" {
		return errors.New("visualization jobId is required")
	}
	if v.Type == "" {
		return errors.New("visualization type is required")
	}
	return nil
}

// SetDefaults assigns the identifier and timestamp when absent
func (v *Visualization) SetDefaults() {
	if v.ID == "" {
		v.ID = NewVisualizationID()
	}
	if v.Timestamp == 0 {
		v.Timestamp = NowMillis()
	}
}

// VisualizationPatch carries the updatable visualization fields for partial
// updates. Nil fields are left unchanged. Identity, the job reference and
// the timestamp are not patchable.
type VisualizationPatch struct {
	Type        *string                `json:"type,omitempty"`
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Component   *string                `json:"component,omitempty"`
	Data        interface{}            `json:"data,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Apply copies the non-nil patch fields onto the visualization
func (p VisualizationPatch) Apply(v *Visualization) {
	if p.Type != nil {
		v.Type = *p.Type
	}
	if p.Title != nil {
		v.Title = *p.Title
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.Component != nil {
		v.Component = *p.Component
	}
	if p.Data != nil {
		v.Data = p.Data
	}
	if p.Config != nil {
		v.Config = p.Config
	}
	if p.Metadata != nil {
		v.Metadata = p.Metadata
	}
}
