package datamonkey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// UploadOptions carries the metadata attached to an upload. Kind is the
// dataset type reported to the server ("alignment" or "tree").
type UploadOptions struct {
	Name               string
	Description        string
	Kind               string
	SkipExistenceCheck bool
}

// UploadResult is the non-throwing result of an upload. FileHandle is the
// content-addressed identifier every subsequent payload references; it is
// identical for identical file content regardless of how many times the
// file is uploaded.
type UploadResult struct {
	Status        string `json:"status"`
	FileHandle    string `json:"fileHandle,omitempty"`
	FileName      string `json:"fileName,omitempty"`
	FileSize      int64  `json:"fileSize,omitempty"`
	AlreadyExists bool   `json:"alreadyExists,omitempty"`
	Error         string `json:"error,omitempty"`
}

// UploadFile uploads a local file through the content-addressed cache. The
// file's sha256 hash is checked against the server's dataset listing first;
// on a hit the hash is returned as the handle without transferring any
// bytes. Local I/O problems, a failed existence check and a failed upload
// all come back as an error-status result.
func (c *Client) UploadFile(ctx context.Context, path string, opts UploadOptions) UploadResult {
	info, err := os.Stat(path)
	if err != nil {
		return UploadResult{Status: StatusError, Error: fmt.Sprintf("file not found: %s", path)}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return UploadResult{Status: StatusError, Error: fmt.Sprintf("failed to read %s: %v", path, err)}
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	base := filepath.Base(path)

	if !opts.SkipExistenceCheck {
		exists, err := c.DatasetExists(ctx, hash)
		if err != nil {
			return UploadResult{Status: StatusError, Error: fmt.Sprintf("failed to check existing datasets: %v", err)}
		}
		if exists {
			return UploadResult{
				Status:        StatusSuccess,
				FileHandle:    hash,
				FileName:      base,
				FileSize:      info.Size(),
				AlreadyExists: true,
			}
		}
	}

	meta := DatasetMeta{
		Name:        opts.Name,
		Description: opts.Description,
		Type:        opts.Kind,
	}
	if meta.Name == "" {
		meta.Name = base
	}

	handle, err := c.CreateDataset(ctx, meta, base, content)
	if err != nil {
		return UploadResult{Status: StatusError, Error: err.Error()}
	}

	return UploadResult{
		Status:     StatusSuccess,
		FileHandle: handle,
		FileName:   base,
		FileSize:   info.Size(),
	}
}
