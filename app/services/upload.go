package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/storage"
)

// AllowedUploadTypes are the sniffed content types an upload may have.
var AllowedUploadTypes = []string{"image/png", "image/jpeg", "image/gif", "application/pdf", "text/plain"}

var extensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
}

type UploadService struct {
	store    *store.Store
	disk     storage.Disk
	maxBytes int64
}

func NewUploadService(s *store.Store, disk storage.Disk, maxBytes int64) *UploadService {
	return &UploadService{store: s, disk: disk, maxBytes: maxBytes}
}

// MaxBytes is the largest accepted file.
func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// Save reads at most MaxBytes from r, checks what the bytes actually are,
// and stores them. The client's filename and declared type are not trusted.
func (s *UploadService) Save(ctx context.Context, filename, userID string, r io.Reader) (models.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return models.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return models.Upload{}, &ValidationError{Fields: map[string]string{"file": "The file must not be empty."}}
	}
	if int64(len(data)) > s.maxBytes {
		return models.Upload{}, fmt.Errorf("%w: file exceeds %d bytes", ErrTooLarge, s.maxBytes)
	}

	contentType := SniffContentType(data)
	if !slices.Contains(AllowedUploadTypes, contentType) {
		return models.Upload{}, fmt.Errorf("%w: %s", ErrUnsupported, contentType)
	}

	key := "uploads/" + uuid.NewString() + extensions[contentType]
	size, err := s.disk.Put(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return models.Upload{}, fmt.Errorf("store upload: %w", err)
	}

	up, err := s.store.Uploads.Create(ctx, models.Upload{
		Filename:    cleanFilename(filename),
		ContentType: contentType,
		Size:        size,
		URL:         s.disk.URL(key),
		UserID:      userID,
		UploadedAt:  s.store.Now(),
		Path:        key,
	})
	if err != nil {
		if derr := s.disk.Delete(context.WithoutCancel(ctx), key); derr != nil {
			logger.WithCtx(ctx).Warn("orphaned upload not removed", "path", key, "error", derr)
		}
		return models.Upload{}, err
	}
	return up, nil
}

// SniffContentType returns the media type of data without parameters.
func SniffContentType(data []byte) string {
	mt, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}

func (s *UploadService) Get(ctx context.Context, id string) (models.Upload, error) {
	up, err := s.store.Uploads.FindUnique(ctx, id)
	if err != nil {
		return models.Upload{}, err
	}
	if up == nil {
		return models.Upload{}, fmt.Errorf("%w: upload %s", ErrNotFound, id)
	}
	return *up, nil
}

// List returns uploads, newest first.
func (s *UploadService) List(ctx context.Context) ([]models.Upload, error) {
	res, err := s.store.Uploads.FindMany(ctx, store.Query[models.Upload]{
		Sort: store.Newest(func(u models.Upload) int64 { return u.UploadedAt.UnixNano() }),
	})
	if err != nil {
		return nil, err
	}
	return repositories.Items(ctx, s.store.Uploads.Name(), res), nil
}

// Open returns the upload's bytes. The caller closes them.
func (s *UploadService) Open(ctx context.Context, id string) (io.ReadCloser, models.Upload, error) {
	up, err := s.Get(ctx, id)
	if err != nil {
		return nil, models.Upload{}, err
	}
	rc, err := s.disk.Get(ctx, up.Path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, up, fmt.Errorf("%w: file for upload %s", ErrNotFound, id)
	}
	return rc, up, err
}

func (s *UploadService) Delete(ctx context.Context, id string) error {
	up, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.disk.Delete(ctx, up.Path); err != nil {
		return fmt.Errorf("delete upload file: %w", err)
	}
	_, err = s.store.Uploads.Delete(ctx, id)
	return err
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
