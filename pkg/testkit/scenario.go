// Package testkit drives HTTP API tests from JSON scenario files.
//
// A scenario names one request, the status it must produce and any number
// of dot-path expectations on the JSON response:
//
//	{
//	  "name": "product detail",
//	  "requestMethod": "GET",
//	  "requestUrl": "/api/products/1",
//	  "expectedCode": 200,
//	  "expect": {"success": true, "data.id": 1},
//	  "expectAbsent": ["data.passwordHash"]
//	}
//
// Outgoing HTTP made through pkg/http is intercepted by MockTransport using
// the scenario's netUtilMockStep entries. Scenario files live in testdata/:
//
//	func TestAPI(t *testing.T) {
//	    k := newKernel(t)
//	    testkit.RunDir(t, k.Handler(), "testdata/api")
//	}
package testkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// MethodHTTP is the only mock step method the runner intercepts.
const MethodHTTP = "httprequest"

// Scenario describes a single REST API test case loaded from a JSON file.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	RequestMethod   string            `json:"requestMethod"`   // defaults to GET
	RequestURL      string            `json:"requestUrl"`      // e.g. /api/products?limit=2
	RequestBody     json.RawMessage   `json:"requestBody"`     // inline JSON body
	RequestFileName string            `json:"requestFileName"` // body file, relative to the scenario
	Headers         map[string]string `json:"headers"`

	ExpectedCode     int            `json:"expectedCode"`
	ResponseFileName string         `json:"responseFileName"` // full expected body, relative to the scenario
	Expect           map[string]any `json:"expect"`           // dot path -> expected JSON value
	ExpectAbsent     []string       `json:"expectAbsent"`     // dot paths that must not resolve

	// IsMockRequired fails any outgoing call that no step matches.
	IsMockRequired  bool       `json:"isMockRequired"`
	NetUtilMockStep []MockStep `json:"netUtilMockStep"`

	dir string
}

// MockStep describes one intercepted outgoing call.
type MockStep struct {
	Method string `json:"method"` // always "httprequest"

	// IsMock false marks a documented call that goes to the real transport.
	IsMock bool `json:"isMock"`

	// MatchURL is a prefix; empty matches any URL.
	MatchURL string `json:"matchUrl"`

	ReturnData MockReturnData `json:"returnData"`
}

// MockReturnData is the synthetic response for a mock step.
type MockReturnData struct {
	StatusCode int    `json:"statusCode"` // defaults to 200
	Body       string `json:"body"`       // base64-encoded
}

// LoadScenario reads and validates a scenario from a JSON file.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", abs, err)
	}

	s.dir = filepath.Dir(abs)
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.RequestURL == "" {
		return errors.New("requestUrl is required")
	}
	if s.ExpectedCode == 0 {
		return errors.New("expectedCode is required")
	}
	if s.RequestMethod == "" {
		s.RequestMethod = "GET"
	}
	if len(s.RequestBody) > 0 && s.RequestFileName != "" {
		return errors.New("requestBody and requestFileName are mutually exclusive")
	}
	for i, step := range s.NetUtilMockStep {
		if step.Method != MethodHTTP {
			return fmt.Errorf("netUtilMockStep[%d].method must be %q", i, MethodHTTP)
		}
	}
	return nil
}

// RequestBodyPath returns the absolute path to the request body file, or ""
// when RequestFileName is not set.
func (s *Scenario) RequestBodyPath() string {
	return s.resolve(s.RequestFileName)
}

// ResponseBodyPath returns the absolute path to the expected response file,
// or "" when ResponseFileName is not set.
func (s *Scenario) ResponseBodyPath() string {
	return s.resolve(s.ResponseFileName)
}

func (s *Scenario) resolve(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// LoadAllFromDir loads every *.json file in dir as a Scenario, in file name
// order. Request and response body files belong in a subdirectory. Files
// that fail to parse are collected as errors.
func LoadAllFromDir(dir string) ([]*Scenario, []error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(entries) == 0 {
		return nil, []error{fmt.Errorf("testkit: no scenario files found in %q", dir)}
	}
	sort.Strings(entries)

	var (
		scenarios []*Scenario
		errs      []error
	)
	for _, path := range entries {
		s, err := LoadScenario(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, errs
}
