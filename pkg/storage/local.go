package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: basePath}, nil
}

// BasePath returns the directory artifacts are written to.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Put writes the artifact through a temporary file and renames it into
// place, so readers never observe a half-written chart.
func (s *LocalStorage) Put(ctx context.Context, name string, contentType string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	safeName := sanitizeFilename(name)
	filePath := filepath.Join(s.basePath, safeName)

	f, err := os.CreateTemp(s.basePath, "."+safeName+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := f.Name()

	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to move file into place: %w", err)
	}

	if contentType == "" {
		contentType = contentTypeFor(safeName)
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &FileInfo{
		Name:        safeName,
		Size:        size,
		ContentType: contentType,
		Location:    filePath,
		CreatedAt:   stat.ModTime(),
	}, nil
}

// Get opens an artifact by name
func (s *LocalStorage) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.basePath, sanitizeFilename(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// List returns the artifacts in the base directory, sorted by name
func (s *LocalStorage) List(ctx context.Context) ([]*FileInfo, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, &FileInfo{
			Name:        entry.Name(),
			Size:        info.Size(),
			ContentType: contentTypeFor(entry.Name()),
			Location:    filepath.Join(s.basePath, entry.Name()),
			CreatedAt:   info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
