package storage

import (
	"context"
	"io"
)

// ObjectStorage is the subset of bucket operations media hosting needs.
type ObjectStorage interface {
	// Upload writes an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL of an object.
	GetURL(key string) string
}
