package handler

import (
	"net/http"
	"time"

	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/service"
	"github.com/dandantas/tamarin/internal/store"
)

// HealthHandler handles service health and readiness checks
type HealthHandler struct {
	tracker   *service.Tracker
	datasets  *store.DatasetStore
	jobs      *store.JobStore
	vizzes    *store.VisualizationStore
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	tracker *service.Tracker,
	datasets *store.DatasetStore,
	jobs *store.JobStore,
	vizzes *store.VisualizationStore,
	version string,
) *HealthHandler {
	return &HealthHandler{
		tracker:   tracker,
		datasets:  datasets,
		jobs:      jobs,
		vizzes:    vizzes,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Timestamp      string `json:"timestamp"`
	Datasets       int    `json:"datasets"`
	Jobs           int    `json:"jobs"`
	Visualizations int    `json:"visualizations"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Ready      bool   `json:"ready"`
	Datamonkey string `json:"datamonkey"`
	Error      string `json:"error,omitempty"`
}

// Health returns the service health status and registry counts
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:         "healthy",
		Version:        h.version,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Datasets:       h.datasets.Count(),
		Jobs:           h.jobs.Count(),
		Visualizations: h.vizzes.Count(),
		UptimeSeconds:  int64(time.Since(h.startTime).Seconds()),
	}

	writeJSON(w, http.StatusOK, response)
}

// Ready returns the service readiness status. The service is ready when the
// remote Datamonkey API answers its health probe.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	api := h.tracker.CheckAPI(r.Context())

	ready := api.Status == datamonkey.StatusSuccess
	remoteStatus := "reachable"
	if !ready {
		remoteStatus = "unreachable"
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadyResponse{
		Ready:      ready,
		Datamonkey: remoteStatus,
		Error:      api.Error,
	}

	writeJSON(w, statusCode, response)
}
