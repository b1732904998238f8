// Package storage persists run artifacts (charts, CSV exports) to a local
// directory or a Google Cloud Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var ErrNotFound = errors.New("artifact not found")

// FileInfo contains metadata about a stored artifact
type FileInfo struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Location    string    `json:"location"` // filesystem path or gs:// URI
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for artifact storage operations. Artifact
// names are flat; writing the same name twice replaces the first artifact.
type Storage interface {
	// Put stores an artifact under name and returns its metadata
	Put(ctx context.Context, name string, contentType string, r io.Reader) (*FileInfo, error)

	// Get opens an artifact for reading
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// List returns all artifacts in the store
	List(ctx context.Context) ([]*FileInfo, error)
}

// StorageType identifies the storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeGCS   StorageType = "gcs"
)

// Config holds storage configuration
type Config struct {
	Type StorageType

	// LocalPath is the output directory for the local backend.
	LocalPath string

	GCSBucket string
	GCSPrefix string

	// Namespace, when set, isolates a run under its own sub-directory or
	// object prefix.
	Namespace string
}

// New creates a new Storage implementation based on configuration
func New(ctx context.Context, cfg *Config) (Storage, error) {
	switch cfg.Type {
	case StorageTypeGCS:
		return NewGCSStorage(ctx, cfg.GCSBucket, path.Join(cfg.GCSPrefix, cfg.Namespace))
	case StorageTypeLocal, "":
		return NewLocalStorage(path.Join(cfg.LocalPath, cfg.Namespace))
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// sanitizeFilename removes unsafe characters from artifact names
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}

// contentTypeFor guesses a content type from the artifact extension.
func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	case ".prom":
		return "text/plain; version=0.0.4"
	default:
		return "application/octet-stream"
	}
}
