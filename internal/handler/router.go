package handler

import (
	"net/http"
	"strings"

	"github.com/dandantas/tamarin/pkg/middleware"
)

// Router handles HTTP routing
type Router struct {
	datasetHandler       *DatasetHandler
	jobHandler           *JobHandler
	visualizationHandler *VisualizationHandler
	methodHandler        *MethodHandler
	healthHandler        *HealthHandler
	corsConfig           middleware.CORSConfig
}

// NewRouter creates a new router
func NewRouter(
	datasetHandler *DatasetHandler,
	jobHandler *JobHandler,
	visualizationHandler *VisualizationHandler,
	methodHandler *MethodHandler,
	healthHandler *HealthHandler,
	corsConfig middleware.CORSConfig,
) *Router {
	return &Router{
		datasetHandler:       datasetHandler,
		jobHandler:           jobHandler,
		visualizationHandler: visualizationHandler,
		methodHandler:        methodHandler,
		healthHandler:        healthHandler,
		corsConfig:           corsConfig,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	// Service health endpoints
	mux.HandleFunc("/health", rt.healthHandler.Health)
	mux.HandleFunc("/ready", rt.healthHandler.Ready)

	// API endpoints
	mux.HandleFunc("/api/v1/datasets", rt.handleDatasets)
	mux.HandleFunc("/api/v1/datasets/", rt.handleDatasetsWithID)
	mux.HandleFunc("/api/v1/jobs", rt.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", rt.handleJobsWithID)
	mux.HandleFunc("/api/v1/visualizations", rt.handleVisualizations)
	mux.HandleFunc("/api/v1/visualizations/", rt.handleVisualizationsWithID)
	mux.HandleFunc("/api/v1/methods", rt.handleMethods)
	mux.HandleFunc("/api/v1/methods/", rt.handleMethodsWithName)

	// Apply middleware (CORS first to handle preflight requests)
	handler := middleware.CORS(rt.corsConfig)(mux)
	handler = middleware.Recovery(handler)
	handler = middleware.Logging(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}

// handleDatasets routes dataset collection endpoints
func (rt *Router) handleDatasets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.datasetHandler.List(w, r)
	case http.MethodPost:
		rt.datasetHandler.Create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleDatasetsWithID routes dataset individual endpoints
func (rt *Router) handleDatasetsWithID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.datasetHandler.Get(w, r)
	case http.MethodPatch:
		rt.datasetHandler.Update(w, r)
	case http.MethodDelete:
		rt.datasetHandler.Delete(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleJobs routes job collection endpoints
func (rt *Router) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.jobHandler.List(w, r)
	case http.MethodPost:
		rt.jobHandler.Submit(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleJobsWithID routes job individual endpoints
func (rt *Router) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")

	// Action endpoints
	if strings.HasSuffix(path, "/refresh") {
		if r.Method != http.MethodPost && r.Method != http.MethodOptions {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rt.jobHandler.Refresh(w, r)
		return
	}
	if strings.HasSuffix(path, "/results") {
		if r.Method != http.MethodPost && r.Method != http.MethodOptions {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rt.jobHandler.Results(w, r)
		return
	}

	// Handle CRUD operations
	switch r.Method {
	case http.MethodGet:
		rt.jobHandler.Get(w, r)
	case http.MethodDelete:
		rt.jobHandler.Delete(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleMethods routes method catalog collection endpoints
func (rt *Router) handleMethods(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.methodHandler.List(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleMethodsWithName routes method catalog individual endpoints
func (rt *Router) handleMethodsWithName(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.methodHandler.Get(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleVisualizations routes visualization collection endpoints
func (rt *Router) handleVisualizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.visualizationHandler.List(w, r)
	case http.MethodPost:
		rt.visualizationHandler.Create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleVisualizationsWithID routes visualization individual endpoints
func (rt *Router) handleVisualizationsWithID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.visualizationHandler.Get(w, r)
	case http.MethodPatch:
		rt.visualizationHandler.Update(w, r)
	case http.MethodDelete:
		rt.visualizationHandler.Delete(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
