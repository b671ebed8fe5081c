package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dandantas/tamarin/internal/model"
	"github.com/dandantas/tamarin/internal/store"
)

// DatasetHandler handles dataset registry operations
type DatasetHandler struct {
	datasets   *store.DatasetStore
	uploadsDir string
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(datasets *store.DatasetStore, uploadsDir string) *DatasetHandler {
	return &DatasetHandler{
		datasets:   datasets,
		uploadsDir: uploadsDir,
	}
}

// DatasetListResponse represents the dataset list response
type DatasetListResponse struct {
	Total   int             `json:"total"`
	Results []model.Dataset `json:"results"`
}

// List handles GET /api/v1/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets := h.datasets.GetAll()

	writeJSON(w, http.StatusOK, DatasetListResponse{
		Total:   len(datasets),
		Results: datasets,
	})
}

// CreateDatasetRequest registers files already present on the server
type CreateDatasetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	FilePath    string `json:"filePath,omitempty"`
	TreePath    string `json:"treePath,omitempty"`
}

// Create handles POST /api/v1/datasets. A JSON body registers server-local
// paths; a multipart body uploads the files into the uploads directory
// first.
func (h *DatasetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var ds model.Dataset

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		created, err := h.storeUploadedFiles(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ds = created
	} else {
		var req CreateDatasetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		ds = model.Dataset{
			Name:        req.Name,
			Description: req.Description,
			FilePath:    req.FilePath,
			TreePath:    req.TreePath,
		}
	}

	if err := ds.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.datasets.Add(&ds); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, ds)
}

// Get handles GET /api/v1/datasets/{id}
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/datasets/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "dataset ID is required")
		return
	}

	ds, ok := h.datasets.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("dataset %s not found", id))
		return
	}

	writeJSON(w, http.StatusOK, ds)
}

// UpdateDatasetRequest represents the dataset update request
type UpdateDatasetRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	FileSize      *int64  `json:"fileSize,omitempty"`
	SequenceCount *int    `json:"sequenceCount,omitempty"`
}

// Update handles PATCH /api/v1/datasets/{id}
func (h *DatasetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/datasets/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "dataset ID is required")
		return
	}

	var req UpdateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ds, err := h.datasets.Update(id, model.DatasetPatch{
		Name:          req.Name,
		Description:   req.Description,
		FileSize:      req.FileSize,
		SequenceCount: req.SequenceCount,
	})
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ds)
}

// Delete handles DELETE /api/v1/datasets/{id}. Jobs that reference the
// dataset are kept.
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/datasets/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "dataset ID is required")
		return
	}

	if err := h.datasets.Delete(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "dataset deleted successfully",
	})
}

// storeUploadedFiles saves the multipart file parts under the uploads
// directory and builds the dataset record. The alignment arrives as "file",
// the optional tree as "tree".
func (h *DatasetHandler) storeUploadedFiles(r *http.Request) (model.Dataset, error) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		return model.Dataset{}, fmt.Errorf("invalid multipart body: %w", err)
	}

	ds := model.Dataset{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}

	filePath, size, err := h.saveFormFile(r, "file")
	if err != nil {
		return model.Dataset{}, err
	}
	ds.FilePath = filePath
	ds.FileSize = size

	treePath, _, err := h.saveFormFile(r, "tree")
	if err != nil {
		return model.Dataset{}, err
	}
	ds.TreePath = treePath

	if ds.FilePath == "" && ds.TreePath == "" {
		return model.Dataset{}, fmt.Errorf("multipart body carries no file or tree part")
	}
	if ds.Name == "" {
		base := ds.FilePath
		if base == "" {
			base = ds.TreePath
		}
		ds.Name = filepath.Base(base)
	}

	return ds, nil
}

// saveFormFile writes one named multipart part to the uploads directory.
// A missing part is not an error.
func (h *DatasetHandler) saveFormFile(r *http.Request, field string) (string, int64, error) {
	src, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("invalid %s part: %w", field, err)
	}
	defer src.Close()

	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	path := filepath.Join(h.uploadsDir, fmt.Sprintf("%d_%s", model.NowMillis(), filepath.Base(header.Filename)))
	dst, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to store %s: %w", field, err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		return "", 0, fmt.Errorf("failed to store %s: %w", field, err)
	}

	return path, size, nil
}
