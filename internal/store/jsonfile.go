package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONFileCollection persists a registry as a single JSON array on disk.
// A missing file reads as an empty registry; a malformed file is an error
// so a corrupted registry never silently reads as empty.
type JSONFileCollection[T any] struct {
	path string
}

// NewJSONFileCollection creates a collection backed by the given file path
func NewJSONFileCollection[T any](path string) *JSONFileCollection[T] {
	return &JSONFileCollection[T]{path: path}
}

// Load reads the full registry document
func (c *JSONFileCollection[T]) Load() ([]T, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", c.path, err)
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", c.path, err)
	}
	if records == nil {
		records = []T{}
	}

	return records, nil
}

// SaveAll rewrites the full registry document
func (c *JSONFileCollection[T]) SaveAll(records []T) error {
	if records == nil {
		records = []T{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}

	return nil
}
