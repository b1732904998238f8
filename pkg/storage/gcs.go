package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStorage implements Storage on a Google Cloud Storage bucket. It relies on
// Application Default Credentials.
type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStorage creates a bucket-backed store. Objects are written under prefix.
func NewGCSStorage(ctx context.Context, bucket, prefix string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) objectName(name string) string {
	return path.Join(s.prefix, sanitizeFilename(name))
}

// Put uploads the artifact; the object is only visible once the writer closes.
func (s *GCSStorage) Put(ctx context.Context, name string, contentType string, r io.Reader) (*FileInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if contentType == "" {
		contentType = contentTypeFor(name)
	}

	objectName := s.objectName(name)
	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	size, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("copy artifact to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	return &FileInfo{
		Name:        sanitizeFilename(name),
		Size:        size,
		ContentType: contentType,
		Location:    fmt.Sprintf("gs://%s/%s", s.bucket, objectName),
		CreatedAt:   time.Now(),
	}, nil
}

// Get opens an object reader for the artifact
func (s *GCSStorage) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return rc, nil
}

// List returns the objects under the store prefix
func (s *GCSStorage) List(ctx context.Context) ([]*FileInfo, error) {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}

	var files []*FileInfo
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		files = append(files, &FileInfo{
			Name:        path.Base(attrs.Name),
			Size:        attrs.Size,
			ContentType: attrs.ContentType,
			Location:    fmt.Sprintf("gs://%s/%s", s.bucket, attrs.Name),
			CreatedAt:   attrs.Created,
		})
	}
	return files, nil
}
