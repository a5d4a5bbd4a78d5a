package storage

import (
	"context"
	"io"
)

// Object describes a stored blob.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// ObjectStore is the blob store the file service writes through. Uploads
// return the generated key plus a presigned URL; deletes are best-effort
// from the caller's point of view.
type ObjectStore interface {
	Upload(ctx context.Context, r io.Reader, size int64, contentType, folder string) (*Object, error)
	URL(ctx context.Context, key string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
