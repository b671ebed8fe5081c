// Package datamonkey implements the client side of the Datamonkey-style
// analysis API: health probing, content-addressed dataset uploads, the
// start-or-monitor submission protocol and payload-driven result retrieval.
package datamonkey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Operation statuses reported by the non-throwing client surface
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Client talks to a Datamonkey-compatible API server
type Client struct {
	baseURL    string
	basePath   string
	httpClient *http.Client
}

// NewClient creates a client with an optimized HTTP transport. Analysis
// methods can hold the start request open for a while, so the timeout is
// typically generous.
func NewClient(baseURL, basePath string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		basePath: "/" + strings.Trim(basePath, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				DisableCompression:  false,
			},
		},
	}
}

// BaseURL returns the configured server URL without the API base path
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + c.basePath + path
}

// APIStatus is the non-throwing result of a connectivity probe
type APIStatus struct {
	Status  string `json:"status"`
	URL     string `json:"url"`
	Health  string `json:"health,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CheckAPI probes the server's health endpoint and reports connectivity
func (c *Client) CheckAPI(ctx context.Context) APIStatus {
	status := APIStatus{URL: c.baseURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health"), nil)
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("cannot reach Datamonkey API: %v", err)
		return status
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		status.Status = StatusError
		status.Error = fmt.Sprintf("health endpoint returned HTTP %d: %s", resp.StatusCode, truncateBody(body))
		return status
	}

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("unexpected health response: %s", truncateBody(body))
		return status
	}

	status.Status = StatusSuccess
	status.Health = health.Status
	status.Version = health.Version
	return status
}

// DatasetExists reports whether the server already holds a dataset with the
// given content hash. The datasets listing may be a bare array or wrapped
// in a {"datasets": [...]} envelope.
func (c *Client) DatasetExists(ctx context.Context, hash string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/datasets"), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read datasets listing: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("datasets listing returned HTTP %d: %s", resp.StatusCode, truncateBody(body))
	}

	var bare []map[string]interface{}
	if err := json.Unmarshal(body, &bare); err == nil {
		return containsDataset(bare, hash), nil
	}

	var wrapped struct {
		Datasets []map[string]interface{} `json:"datasets"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		return containsDataset(wrapped.Datasets, hash), nil
	}

	return false, fmt.Errorf("unexpected datasets listing: %s", truncateBody(body))
}

func containsDataset(datasets []map[string]interface{}, hash string) bool {
	for _, d := range datasets {
		if id, ok := d["id"].(string); ok && id == hash {
			return true
		}
	}
	return false
}

// DatasetMeta is the metadata part of a dataset upload
type DatasetMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// CreateDataset uploads file content as a multipart request with a JSON
// "meta" field and a "file" part, and returns the server-assigned file
// handle (the content hash)
func (c *Client) CreateDataset(ctx context.Context, meta DatasetMeta, filename string, content []byte) (string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode dataset meta: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("meta", string(metaJSON)); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/datasets"), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload returned HTTP %d: %s", resp.StatusCode, truncateBody(body))
	}

	var parsed struct {
		File string `json:"file"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.File == "" {
		return "", fmt.Errorf("upload response carries no file handle: %s", truncateBody(body))
	}

	return parsed.File, nil
}

// FetchResult posts a job's stored payload to the method's result endpoint
// and returns the decoded result document
func (c *Client) FetchResult(ctx context.Context, method string, payload map[string]interface{}) (interface{}, error) {
	status, body, err := c.postJSON(ctx, "/methods/"+method+"-result", payload)
	if err != nil {
		return nil, fmt.Errorf("result request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("result endpoint returned HTTP %d: %s", status, truncateBody(body))
	}

	var results interface{}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("unexpected result response: %s", truncateBody(body))
	}
	return results, nil
}

// postJSON sends a JSON POST and returns the raw status and body
func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// truncateBody keeps error messages readable when the server returns a
// large document
func truncateBody(body []byte) string {
	const limit = 300
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
