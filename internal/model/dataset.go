package model

import "errors"

// Dataset represents a registered input file pair (alignment and/or tree)
// available for analysis submissions.
type Dataset struct {
	ID            string `json:"datasetId" bson:"_id"`
	Name          string `json:"name" bson:"name"`
	Description   string `json:"description,omitempty" bson:"description,omitempty"`
	Timestamp     int64  `json:"timestamp" bson:"timestamp"`
	HasAlignment  bool   `json:"hasAlignment" bson:"hasAlignment"`
	HasTree       bool   `json:"hasTree" bson:"hasTree"`
	FileSize      int64  `json:"fileSize,omitempty" bson:"fileSize,omitempty"`
	SequenceCount int    `json:"sequenceCount,omitempty" bson:"sequenceCount,omitempty"`
	FilePath      string `json:"filePath,omitempty" bson:"filePath,omitempty"`
	TreePath      string `json:"treePath,omitempty" bson:"treePath,omitempty"`
}

// Validate validates a dataset record before registration
func (d *Dataset) Validate() error {
	if d.Name == "" {
		return errors.New("dataset name is required")
	}
	if d.FilePath == "" && d.TreePath == "" {
		return errors.New("dataset requires an alignment file or a tree file")
	}
	return nil
}

// SetDefaults assigns the identifier and timestamp when absent and derives
// the presence flags from the registered paths
func (d *Dataset) SetDefaults() {
	if d.ID == "" {
		d.ID = NewDatasetID()
	}
	if d.Timestamp == 0 {
		d.Timestamp = NowMillis()
	}
	if d.FilePath != "" {
		d.HasAlignment = true
	}
	if d.TreePath != "" {
		d.HasTree = true
	}
}

// DatasetPatch carries the updatable dataset fields for partial updates.
// Nil fields are left unchanged. Identity, paths and the timestamp are not
// patchable.
type DatasetPatch struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	FileSize      *int64  `json:"fileSize,omitempty"`
	SequenceCount *int    `json:"sequenceCount,omitempty"`
}

// Apply copies the non-nil patch fields onto the dataset
func (p DatasetPatch) Apply(d *Dataset) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.FileSize != nil {
		d.FileSize = *p.FileSize
	}
	if p.SequenceCount != nil {
		d.SequenceCount = *p.SequenceCount
	}
}
