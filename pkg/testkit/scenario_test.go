package testkit_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fhttp "github.com/shashiranjanraj/faultline/pkg/http"
	"github.com/shashiranjanraj/faultline/pkg/testkit"
)

// echoHandler answers /health, echoes POST /echo bodies and reaches out to
// an upstream on /relay.
var echoHandler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/health":
		_, _ = io.WriteString(w, `{"success":true,"data":{"status":"ok","checks":["store","hub"]}}`)
	case "/echo":
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": in})
	case "/relay":
		resp, err := fhttp.Get("https://upstream.test/v1/ping").Send()
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(resp.Raw)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"Route not found"}`)
	}
})

func TestRunDir(t *testing.T) {
	testkit.RunDir(t, echoHandler, "testdata/echo")
}

func TestRunSettlesBeforeCheckingMocks(t *testing.T) {
	settled := false
	testkit.Run(t, echoHandler, "testdata/echo/03_relay.json", testkit.WithSettle(func(context.Context) error {
		settled = true
		return nil
	}))
	assert.True(t, settled)
}

func TestLoadScenarioValidates(t *testing.T) {
	s, err := testkit.LoadScenario("testdata/echo/02_echo.json")
	require.NoError(t, err)
	assert.Equal(t, "POST", s.RequestMethod)
	assert.Equal(t, 201, s.ExpectedCode)
	assert.NotEmpty(t, s.RequestBodyPath())

	_, err = testkit.LoadScenario("testdata/echo/bodies/echo_req.json")
	assert.Error(t, err, "a body file is not a scenario")
}

func TestLookup(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"items":[{"name":"a"},{"name":"b"}],"meta":null}}`), &doc))

	v, ok := testkit.Lookup(doc, "data.items.1.name")
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = testkit.Lookup(doc, "data.items.$len")
	assert.True(t, ok)
	assert.Equal(t, float64(2), v)

	v, ok = testkit.Lookup(doc, "data.meta")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = testkit.Lookup(doc, "data.items.2")
	assert.False(t, ok)
	_, ok = testkit.Lookup(doc, "data.items.x")
	assert.False(t, ok)
	_, ok = testkit.Lookup(doc, "data.missing")
	assert.False(t, ok)
}

func TestMockTransportMatchesPrefix(t *testing.T) {
	s := &testkit.Scenario{
		Name:           "mock transport",
		IsMockRequired: true,
		NetUtilMockStep: []testkit.MockStep{{
			Method:   testkit.MethodHTTP,
			IsMock:   true,
			MatchURL: "https://api.example.com/",
			ReturnData: testkit.MockReturnData{
				StatusCode: 202,
				Body:       "eyJvayI6dHJ1ZX0=", // {"ok":true}
			},
		}},
	}
	mt := testkit.NewMockTransport(s)

	resp, err := mt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://api.example.com/users", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	assert.Empty(t, mt.AssertAllCalled())
	assert.Len(t, mt.Requests(), 1)
}

func TestMockTransportUnmatched(t *testing.T) {
	required := testkit.NewMockTransport(&testkit.Scenario{
		IsMockRequired:  true,
		NetUtilMockStep: []testkit.MockStep{{Method: testkit.MethodHTTP, IsMock: true, MatchURL: "https://expected.test/"}},
	})
	_, err := required.RoundTrip(httptest.NewRequest(http.MethodGet, "https://unexpected.test/api", nil))
	assert.Error(t, err)
	assert.Len(t, required.AssertAllCalled(), 1)

	lenient := testkit.NewMockTransport(&testkit.Scenario{})
	resp, err := lenient.RoundTrip(httptest.NewRequest(http.MethodGet, "https://unexpected.test/api", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssertJSONBodyIgnoresKeyOrder(t *testing.T) {
	s := &testkit.Scenario{Name: "json body"}
	testkit.AssertJSONBody(t, s, []byte(`{"name":"Alice","age":30}`), []byte(`{"age":  30, "name": "Alice"}`))
}
