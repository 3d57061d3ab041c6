// Package storage is the file store behind uploads and export downloads.
//
// Two drivers are available:
//   - "local": a directory on the local filesystem (default)
//   - "s3":    S3-compatible object storage (AWS S3, MinIO, R2)
//
//	disk, err := storage.FromConfig(ctx)
//	n, err := disk.Put(ctx, "uploads/abc.png", file, "image/png")
//	rc, err := disk.Get(ctx, "uploads/abc.png")
//	defer rc.Close()
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when a path does not exist on the disk.
var ErrNotFound = errors.New("storage: file not found")

// ErrInvalidPath is returned for empty paths and paths that escape the root.
var ErrInvalidPath = errors.New("storage: invalid path")

// Disk is the driver interface.
type Disk interface {
	// Put writes r to p, replacing any existing file, and returns the number
	// of bytes written.
	Put(ctx context.Context, p string, r io.Reader, contentType string) (int64, error)

	// Get opens p for reading. The caller must close it.
	Get(ctx context.Context, p string) (io.ReadCloser, error)

	// Delete removes p. A missing file is not an error.
	Delete(ctx context.Context, p string) error

	Exists(ctx context.Context, p string) (bool, error)

	// URL returns the public URL for p.
	URL(p string) string
}

// clean normalises p to a slash-separated key below the disk root.
func clean(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", ErrInvalidPath
	}
	c := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	c = strings.TrimPrefix(c, "/")
	if c == "" || c == "." {
		return "", ErrInvalidPath
	}
	// Clean against "/" already folds "..", so anything left is a name.
	return c, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
