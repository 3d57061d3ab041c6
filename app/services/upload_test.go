package services_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newUploads(t *testing.T, max int64) *services.UploadService {
	t.Helper()
	disk, err := storage.NewLocal(t.TempDir(), "/files")
	require.NoError(t, err)
	return services.NewUploadService(newStore(), disk, max)
}

func TestUploadSniffsContent(t *testing.T) {
	svc := newUploads(t, 1024)
	ctx := context.Background()

	up, err := svc.Save(ctx, "../../etc/avatar.png", "2", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", up.ContentType)
	assert.Equal(t, "avatar.png", up.Filename)
	assert.Equal(t, int64(len(pngHeader)), up.Size)
	assert.True(t, strings.HasPrefix(up.URL, "/files/uploads/"))
	assert.True(t, strings.HasSuffix(up.URL, ".png"))

	rc, _, err := svc.Open(ctx, up.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, pngHeader, body)

	txt, err := svc.Save(ctx, "notes.exe", "", strings.NewReader("just some notes"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", txt.ContentType)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.Delete(ctx, up.ID))
	_, err = svc.Get(ctx, up.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUploadRejections(t *testing.T) {
	svc := newUploads(t, 16)
	ctx := context.Background()

	_, err := svc.Save(ctx, "a.bin", "", bytes.NewReader([]byte{0x00, 0x01, 0x02, 0xff}))
	assert.ErrorIs(t, err, services.ErrUnsupported)

	_, err = svc.Save(ctx, "big.txt", "", strings.NewReader(strings.Repeat("a", 17)))
	assert.ErrorIs(t, err, services.ErrTooLarge)

	_, err = svc.Save(ctx, "empty.txt", "", strings.NewReader(""))
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	assert.ErrorIs(t, svc.Delete(ctx, "nope"), services.ErrNotFound)
}
