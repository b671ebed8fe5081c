package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NowMillis returns the current time as epoch milliseconds, the timestamp
// unit used across all registry records.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// NewDatasetID generates a dataset identifier of the form
// dataset_<millis>_<random>.
func NewDatasetID() string {
	return fmt.Sprintf("dataset_%d_%s", NowMillis(), randomSuffix())
}

// NewVisualizationID generates a visualization identifier of the form
// viz_<millis>_<random>.
func NewVisualizationID() string {
	return fmt.Sprintf("viz_%d_%s", NowMillis(), randomSuffix())
}

// NewLocalJobID generates a fallback job identifier for submissions the
// remote service rejected before assigning one.
func NewLocalJobID() string {
	return fmt.Sprintf("job_%d", NowMillis())
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
}
