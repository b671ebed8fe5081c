package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dandantas/tamarin/internal/model"
)

// MethodHandler serves the analysis method catalog
type MethodHandler struct{}

// NewMethodHandler creates a new method handler
func NewMethodHandler() *MethodHandler {
	return &MethodHandler{}
}

// MethodParamInfo describes one method parameter in API responses
type MethodParamInfo struct {
	Name        string      `json:"name"`
	Kind        string      `json:"kind"`
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
}

// MethodInfo describes one analysis method in API responses
type MethodInfo struct {
	Name        string            `json:"name"`
	FullName    string            `json:"fullName"`
	Description string            `json:"description"`
	Alignment   string            `json:"alignment"`
	Tree        string            `json:"tree"`
	Params      []MethodParamInfo `json:"params"`
}

// MethodListResponse represents the method list response
type MethodListResponse struct {
	Total   int          `json:"total"`
	Results []MethodInfo `json:"results"`
}

// List handles GET /api/v1/methods
func (h *MethodHandler) List(w http.ResponseWriter, r *http.Request) {
	specs := model.Methods()
	results := make([]MethodInfo, 0, len(specs))
	for _, spec := range specs {
		results = append(results, methodInfo(spec))
	}

	writeJSON(w, http.StatusOK, MethodListResponse{
		Total:   len(results),
		Results: results,
	})
}

// Get handles GET /api/v1/methods/{name}
func (h *MethodHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/methods/")
	if name == "" {
		writeError(w, http.StatusBadRequest, "method name is required")
		return
	}

	spec, ok := model.MethodByName(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("method %s not found", name))
		return
	}

	writeJSON(w, http.StatusOK, methodInfo(spec))
}

func methodInfo(spec model.MethodSpec) MethodInfo {
	params := make([]MethodParamInfo, 0, len(spec.Params))
	for _, p := range spec.Params {
		params = append(params, MethodParamInfo{
			Name:        p.Name,
			Kind:        string(p.Kind),
			Description: p.Description,
			Required:    p.Required,
			Default:     p.Default,
			Enum:        p.Enum,
			Min:         p.Min,
			Max:         p.Max,
		})
	}

	return MethodInfo{
		Name:        spec.Name,
		FullName:    spec.FullName,
		Description: spec.Description,
		Alignment:   spec.Alignment.String(),
		Tree:        spec.Tree.String(),
		Params:      params,
	}
}
