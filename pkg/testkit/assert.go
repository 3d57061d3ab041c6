package testkit

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode checks the response code.
func AssertStatusCode(t *testing.T, s *Scenario, got int) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, got, "[%s] HTTP status code mismatch", s.Name)
}

// AssertJSONBody deep-compares two JSON documents, ignoring key order and
// whitespace.
func AssertJSONBody(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()
	if len(expected) == 0 {
		return
	}

	var expVal, actVal any
	require.NoError(t, json.Unmarshal(expected, &expVal),
		"[%s] expected response file is not valid JSON", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &actVal),
		"[%s] actual response is not valid JSON\nbody: %s", s.Name, actual) {
		return
	}
	assert.Equal(t, expVal, actVal, "[%s] response body mismatch", s.Name)
}

// AssertPaths checks every Expect and ExpectAbsent entry against the
// decoded response body.
func AssertPaths(t *testing.T, s *Scenario, body []byte) {
	t.Helper()
	if len(s.Expect) == 0 && len(s.ExpectAbsent) == 0 {
		return
	}

	var doc any
	if !assert.NoError(t, json.Unmarshal(body, &doc),
		"[%s] response is not valid JSON\nbody: %s", s.Name, body) {
		return
	}

	for path, want := range s.Expect {
		got, ok := Lookup(doc, path)
		if !assert.True(t, ok, "[%s] path %q not found\nbody: %s", s.Name, path, body) {
			continue
		}
		assert.Equal(t, want, got, "[%s] path %q", s.Name, path)
	}
	for _, path := range s.ExpectAbsent {
		_, ok := Lookup(doc, path)
		assert.False(t, ok, "[%s] path %q should be absent", s.Name, path)
	}
}

// Lookup resolves a dot path such as "data.items.0.name" in a decoded JSON
// document. The path "$len" on an array or object yields its length.
func Lookup(doc any, path string) (any, bool) {
	cur := doc
	if path == "" {
		return cur, true
	}
	for _, part := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			if part == "$len" {
				cur = float64(len(v))
				continue
			}
			next, ok := v[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			if part == "$len" {
				cur = float64(len(v))
				continue
			}
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// AssertMocksAllCalled fails the test for every isMock=true step that was
// never triggered.
func AssertMocksAllCalled(t *testing.T, s *Scenario, mt *MockTransport) {
	t.Helper()
	for _, err := range mt.AssertAllCalled() {
		assert.NoError(t, err, "[%s]", s.Name)
	}
}
