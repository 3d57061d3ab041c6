package sse_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/pkg/sse"
)

func TestSendFormatsEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/export/1/events", nil)

	stream, err := sse.New(rec, req)
	require.NoError(t, err)
	require.NoError(t, stream.Send("status", map[string]any{"progress": 50}))
	require.NoError(t, stream.Send("status\nevil: 1", map[string]any{"progress": 100}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"id: 1\nevent: status\ndata: {\"progress\":50}\n\n"+
			"id: 2\nevent: status evil: 1\ndata: {\"progress\":100}\n\n",
		rec.Body.String())
}

func TestSendAfterDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	stream, err := sse.New(httptest.NewRecorder(), req)
	require.NoError(t, err)

	cancel()
	assert.True(t, stream.Closed())
	assert.ErrorIs(t, stream.Send("status", 1), sse.ErrClosed)
}
