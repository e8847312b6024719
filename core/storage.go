package core

import (
	"context"
	"io"
)

// ObjectStore stores uploaded files by key.
type ObjectStore interface {
	// Put stores the content under key and returns its public URL.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Delete removes the object stored under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
