package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/model"
	"github.com/dandantas/tamarin/internal/service"
	"github.com/dandantas/tamarin/internal/store"
)

// VisualizationHandler handles visualization registry operations
type VisualizationHandler struct {
	vizzes  *store.VisualizationStore
	tracker *service.Tracker
}

// NewVisualizationHandler creates a new visualization handler
func NewVisualizationHandler(vizzes *store.VisualizationStore, tracker *service.Tracker) *VisualizationHandler {
	return &VisualizationHandler{
		vizzes:  vizzes,
		tracker: tracker,
	}
}

// VisualizationListResponse represents the visualization list response
type VisualizationListResponse struct {
	Total   int                   `json:"total"`
	Results []model.Visualization `json:"results"`
}

// List handles GET /api/v1/visualizations
func (h *VisualizationHandler) List(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	datasetID := r.URL.Query().Get("dataset_id")

	var vizzes []model.Visualization
	switch {
	case jobID != "":
		vizzes = h.vizzes.GetByJob(jobID)
	case datasetID != "":
		vizzes = h.vizzes.GetByDataset(datasetID)
	default:
		vizzes = h.vizzes.GetAll()
	}

	writeJSON(w, http.StatusOK, VisualizationListResponse{
		Total:   len(vizzes),
		Results: vizzes,
	})
}

// Create handles POST /api/v1/visualizations
func (h *VisualizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.VizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := h.tracker.CreateVisualization(req)

	if res.Status == datamonkey.StatusError {
		if strings.Contains(res.Error, "is not tracked") {
			writeError(w, http.StatusNotFound, res.Error)
			return
		}
		writeError(w, http.StatusBadRequest, res.Error)
		return
	}

	writeJSON(w, http.StatusCreated, res.Visualization)
}

// Get handles GET /api/v1/visualizations/{id}
func (h *VisualizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/visualizations/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "visualization ID is required")
		return
	}

	viz, ok := h.vizzes.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("visualization %s not found", id))
		return
	}

	writeJSON(w, http.StatusOK, viz)
}

// UpdateVisualizationRequest represents the visualization update request
type UpdateVisualizationRequest struct {
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Type        *string                `json:"type,omitempty"`
	Component   *string                `json:"component,omitempty"`
	Data        interface{}            `json:"data,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Update handles PATCH /api/v1/visualizations/{id}
func (h *VisualizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/visualizations/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "visualization ID is required")
		return
	}

	var req UpdateVisualizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	viz, err := h.vizzes.Update(id, model.VisualizationPatch{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Component:   req.Component,
		Data:        req.Data,
		Config:      req.Config,
		Metadata:    req.Metadata,
	})
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, viz)
}

// Delete handles DELETE /api/v1/visualizations/{id}
func (h *VisualizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/visualizations/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "visualization ID is required")
		return
	}

	if err := h.vizzes.Delete(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "visualization deleted successfully",
	})
}
