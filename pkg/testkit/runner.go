package testkit

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fhttp "github.com/shashiranjanraj/faultline/pkg/http"
)

// Option tunes how scenarios run.
type Option func(*runConfig)

type runConfig struct {
	settle        func(context.Context) error
	settleTimeout time.Duration
}

// WithSettle runs fn after each request and before the mocks are checked,
// e.g. to wait for background forwards the handler started.
func WithSettle(fn func(context.Context) error) Option {
	return func(c *runConfig) { c.settle = fn }
}

// WithSettleTimeout bounds WithSettle. Defaults to 5s.
func WithSettleTimeout(d time.Duration) Option {
	return func(c *runConfig) { c.settleTimeout = d }
}

func newRunConfig(opts []Option) runConfig {
	cfg := runConfig{settleTimeout: 5 * time.Second}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Run executes a single scenario file against handler.
//
// Per scenario it installs MockTransport on pkg/http.DefaultClient, fires
// the request, checks the status code, the full body and the dot paths,
// settles background work and finally checks every mock step was called.
func Run(t *testing.T, handler http.Handler, scenarioPath string, opts ...Option) {
	t.Helper()

	s, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	cfg := newRunConfig(opts)
	t.Run(s.Name, func(t *testing.T) {
		runScenario(t, handler, s, cfg)
	})
}

// RunDir runs every scenario in dir as a subtest, in file name order.
// Scenarios share handler, so later files see earlier writes.
func RunDir(t *testing.T, handler http.Handler, dir string, opts ...Option) {
	t.Helper()

	scenarios, errs := LoadAllFromDir(dir)
	for _, err := range errs {
		t.Error(err)
	}

	cfg := newRunConfig(opts)
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			runScenario(t, handler, s, cfg)
		})
	}
}

func runScenario(t *testing.T, handler http.Handler, s *Scenario, cfg runConfig) {
	t.Helper()

	var body io.Reader
	switch {
	case len(s.RequestBody) > 0:
		body = bytes.NewReader(s.RequestBody)
	case s.RequestBodyPath() != "":
		data, err := os.ReadFile(s.RequestBodyPath())
		require.NoError(t, err, "[%s] read request file", s.Name)
		body = bytes.NewReader(data)
	}

	mt := NewMockTransport(s).PassThrough(fhttp.DefaultClient.Transport)
	original := fhttp.DefaultClient.Transport
	fhttp.DefaultClient.Transport = mt
	defer func() { fhttp.DefaultClient.Transport = original }()

	req := httptest.NewRequest(strings.ToUpper(s.RequestMethod), s.RequestURL, body)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	AssertStatusCode(t, s, rec.Code)
	if p := s.ResponseBodyPath(); p != "" {
		expected, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("[%s] read response file %q: %v", s.Name, filepath.Base(p), err)
		} else {
			AssertJSONBody(t, s, expected, rec.Body.Bytes())
		}
	}
	AssertPaths(t, s, rec.Body.Bytes())

	if cfg.settle != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.settleTimeout)
		defer cancel()
		require.NoError(t, cfg.settle(ctx), "[%s] settle", s.Name)
	}
	AssertMocksAllCalled(t, s, mt)
}
