package testkit

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockTransport implements http.RoundTripper over a scenario's mock steps.
// The runner installs it on pkg/http.DefaultClient for the scenario:
//
//	mt := testkit.NewMockTransport(scenario)
//	fhttp.DefaultClient.Transport = mt
//	defer fhttp.ResetTransport()
//	errs := mt.AssertAllCalled()
type MockTransport struct {
	mu       sync.Mutex
	steps    []httpMockEntry
	require  bool
	fallback http.RoundTripper
	requests []*http.Request
}

type httpMockEntry struct {
	step      MockStep
	callCount int
}

// NewMockTransport builds a MockTransport from the steps in s. Unmatched
// calls fail when s.IsMockRequired and get a 404 otherwise.
func NewMockTransport(s *Scenario) *MockTransport {
	mt := &MockTransport{require: s.IsMockRequired}
	for _, step := range s.NetUtilMockStep {
		mt.steps = append(mt.steps, httpMockEntry{step: step})
	}
	return mt
}

// PassThrough sends isMock=false steps through rt.
func (mt *MockTransport) PassThrough(rt http.RoundTripper) *MockTransport {
	mt.fallback = rt
	return mt
}

// RoundTrip intercepts the outgoing request and returns a synthetic response.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	mt.requests = append(mt.requests, req)

	for i := range mt.steps {
		entry := &mt.steps[i]
		if !urlMatches(req.URL.String(), entry.step.MatchURL) {
			continue
		}
		entry.callCount++
		if !entry.step.IsMock && mt.fallback != nil {
			mt.mu.Unlock()
			return mt.fallback.RoundTrip(req)
		}
		mt.mu.Unlock()
		return buildHTTPResponse(req, entry.step.ReturnData)
	}
	mt.mu.Unlock()

	if mt.require {
		return nil, fmt.Errorf("testkit: unexpected outgoing HTTP call to %s: no matching mock step", req.URL)
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Status:     "404 Not Found",
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Requests returns every request seen, matched or not.
func (mt *MockTransport) Requests() []*http.Request {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]*http.Request(nil), mt.requests...)
}

// AssertAllCalled reports every isMock=true step that was never triggered.
func (mt *MockTransport) AssertAllCalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, e := range mt.steps {
		if e.step.IsMock && e.callCount == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock step %q (matchUrl=%q) was never called",
				e.step.Method, e.step.MatchURL))
		}
	}
	return errs
}

func urlMatches(candidate, pattern string) bool {
	return pattern == "" || strings.HasPrefix(candidate, pattern)
}

func buildHTTPResponse(req *http.Request, rd MockReturnData) (*http.Response, error) {
	code := rd.StatusCode
	if code == 0 {
		code = http.StatusOK
	}

	var body []byte
	if rd.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(rd.Body)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(rd.Body)
			if err != nil {
				return nil, fmt.Errorf("testkit: base64 decode mock body: %w", err)
			}
		}
		body = decoded
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, nil
}
