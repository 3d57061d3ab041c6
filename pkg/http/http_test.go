package http_test

import (
	"context"
	"io"
	gohttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fhttp "github.com/shashiranjanraj/faultline/pkg/http"
)

func TestPostSendsJSON(t *testing.T) {
	var gotBody, gotKey, gotType string
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotKey = r.Header.Get("X-Api-Key")
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(gohttp.StatusAccepted)
		_, _ = w.Write([]byte(`{"id":"evt_1"}`))
	}))
	defer srv.Close()

	resp, err := fhttp.Post(srv.URL).
		Using(srv.Client()).
		Header("X-Api-Key", "k").
		Body(map[string]string{"a": "b"}).
		Send()
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.JSONEq(t, `{"a":"b"}`, gotBody)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "application/json", gotType)

	var out struct{ ID string }
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, "evt_1", out.ID)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(gohttp.StatusBadGateway)
			return
		}
		w.WriteHeader(gohttp.StatusOK)
	}))
	defer srv.Close()

	resp, err := fhttp.Get(srv.URL).Using(srv.Client()).Retry(2, time.Millisecond).Send()
	require.NoError(t, err)
	assert.Equal(t, gohttp.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFinalServerErrorIsReturnedAsResponse(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusServiceUnavailable)
	}))
	defer srv.Close()

	resp, err := fhttp.Get(srv.URL).Using(srv.Client()).Send()
	require.NoError(t, err)
	assert.Error(t, resp.Throw())
}

func TestBackoffHonoursContext(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := fhttp.Get(srv.URL).Using(srv.Client()).Retry(3, time.Hour).WithContext(ctx).Send()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
