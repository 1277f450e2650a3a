// Package storage uploads post archives to an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/quill-blog/quill/config"
)

// ErrDisabled is returned by New when no storage backend is configured.
var ErrDisabled = errors.New("object storage is not configured")

// Object describes an archive upload.
type Object struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// Backend is implemented by each object store client.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, obj Object) error
	Bucket() string
	Close() error
}

// New constructs the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "":
		return nil, ErrDisabled
	case config.StorageBackendMinio:
		return NewMinioClient(cfg.Minio)
	case config.StorageBackendGCS:
		return NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
