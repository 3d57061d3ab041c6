package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalDisk stores files below a root directory.
type LocalDisk struct {
	root    string
	baseURL string
}

// NewLocal returns a disk rooted at root, made absolute relative to the
// working directory. baseURL prefixes URL results.
func NewLocal(root, baseURL string) (*LocalDisk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage/local: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage/local: mkdir root: %w", err)
	}
	return &LocalDisk{root: abs, baseURL: baseURL}, nil
}

func (d *LocalDisk) abs(p string) (string, string, error) {
	key, err := clean(p)
	if err != nil {
		return "", "", err
	}
	return key, filepath.Join(d.root, filepath.FromSlash(key)), nil
}

// Put writes through a temp file and renames it, so readers never see a
// partial file.
func (d *LocalDisk) Put(ctx context.Context, p string, r io.Reader, _ string) (int64, error) {
	key, full, err := d.abs(p)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("storage/local: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".put-*")
	if err != nil {
		return 0, fmt.Errorf("storage/local: create %s: %w", key, err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("storage/local: write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("storage/local: commit %s: %w", key, err)
	}
	return n, nil
}

func (d *LocalDisk) Get(_ context.Context, p string) (io.ReadCloser, error) {
	key, full, err := d.abs(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage/local: open %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage/local: open %s: %w", key, err)
	}
	return f, nil
}

func (d *LocalDisk) Delete(_ context.Context, p string) error {
	key, full, err := d.abs(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage/local: delete %s: %w", key, err)
	}
	return nil
}

func (d *LocalDisk) Exists(_ context.Context, p string) (bool, error) {
	_, full, err := d.abs(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

func (d *LocalDisk) URL(p string) string {
	key, err := clean(p)
	if err != nil {
		return ""
	}
	return joinURL(d.baseURL, key)
}
