package reqid_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/faultline/pkg/reqid"
)

func serve(header string) (seen string, echoed string) {
	h := reqid.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = reqid.FromCtx(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(reqid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec.Header().Get(reqid.Header)
}

func TestMiddlewareGeneratesID(t *testing.T) {
	seen, echoed := serve("")
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, echoed)
}

func TestMiddlewareReusesInboundID(t *testing.T) {
	seen, _ := serve("upstream-123")
	assert.Equal(t, "upstream-123", seen)
}

func TestMiddlewareRejectsOversizedID(t *testing.T) {
	seen, _ := serve(strings.Repeat("x", 500))
	assert.NotEqual(t, strings.Repeat("x", 500), seen)
	assert.Len(t, seen, 36)
}
