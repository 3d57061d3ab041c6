package controllers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
	"github.com/shashiranjanraj/faultline/pkg/logger"
)

// multipartOverhead is room for part headers and small form fields on top
// of the file itself.
const multipartOverhead = 64 << 10

type UploadController struct {
	uploads *services.UploadService
}

func NewUploadController(uploads *services.UploadService) *UploadController {
	return &UploadController{uploads: uploads}
}

// Store accepts a multipart body with a "file" part and an optional
// "userId" field.
func (uc *UploadController) Store(c *ctx.Context) {
	mt, _, err := mime.ParseMediaType(c.Header("Content-Type"))
	if err != nil || mt != "multipart/form-data" {
		c.Error(http.StatusUnsupportedMediaType, "Content-Type must be multipart/form-data")
		return
	}

	limit := uc.uploads.MaxBytes()
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, limit+multipartOverhead)
	if err := c.R.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		c.Error(http.StatusBadRequest, "Malformed multipart body")
		return
	}
	defer c.R.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := c.R.FormFile("file")
	if err != nil {
		c.ValidationError(map[string]string{"file": "The file field is required."})
		return
	}
	defer file.Close()

	up, err := uc.uploads.Save(c.Context(), header.Filename, c.R.FormValue("userId"), file)
	if err != nil {
		fail(c, err, "Upload not found")
		return
	}
	c.Created(up)
}

// Show returns metadata, the bytes with ?download=true, or every upload
// when no id is given.
func (uc *UploadController) Show(c *ctx.Context) {
	id := c.Query("id")
	if id == "" {
		list, err := uc.uploads.List(c.Context())
		if err != nil {
			fail(c, err, "Upload not found")
			return
		}
		c.SuccessWithMeta(list, count{Count: len(list)})
		return
	}

	if !c.QueryBool("download") {
		up, err := uc.uploads.Get(c.Context(), id)
		if err != nil {
			fail(c, err, "Upload not found")
			return
		}
		c.Success(up)
		return
	}

	rc, up, err := uc.uploads.Open(c.Context(), id)
	if err != nil {
		fail(c, err, "Upload not found")
		return
	}
	defer rc.Close()
	if err := c.Attachment(up.Filename, up.ContentType, rc); err != nil {
		logger.WithCtx(c.Context()).Warn("upload download interrupted", "upload_id", id, "error", err)
	}
}

func (uc *UploadController) Destroy(c *ctx.Context) {
	id, ok := required(c, "id")
	if !ok {
		return
	}
	if err := uc.uploads.Delete(c.Context(), id); err != nil {
		fail(c, err, "Upload not found")
		return
	}
	c.Success(map[string]any{"id": id, "deleted": true})
}
