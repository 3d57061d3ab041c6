package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/faultline/pkg/router"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func TestGroupRoutesAndNames(t *testing.T) {
	r := router.New()
	api := r.Group("/api")
	api.Get("/products/{id}", "products.show", ok)
	api.Patch("/products/{id}", "products.update", ok)
	api.Delete("/comments", "", ok)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/products/1"},
		{http.MethodPatch, "/api/products/1"},
		{http.MethodDelete, "/api/comments"},
	} {
		rec := httptest.NewRecorder()
		r.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, "%s %s", tc.method, tc.path)
	}

	u, err := r.URL("products.show", map[string]string{"id": "7"})
	require.NoError(t, err)
	assert.Equal(t, "/api/products/7", u)

	_, err = r.URL("products.show", nil)
	assert.Error(t, err)
}

func TestRoutesListing(t *testing.T) {
	r := router.New()
	r.Get("/metrics", "metrics", ok)
	api := r.Group("api")
	api.Post("/checkout", "checkout", ok)
	api.Get("/checkout", "", ok)

	assert.Equal(t, []router.RouteInfo{
		{Method: http.MethodGet, Path: "/api/checkout"},
		{Method: http.MethodPost, Path: "/api/checkout", Name: "checkout"},
		{Method: http.MethodGet, Path: "/metrics", Name: "metrics"},
	}, r.Routes())
}

func TestGroupMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(tag string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, tag)
				next.ServeHTTP(w, req)
			})
		}
	}

	r := router.New()
	g := r.Group("/a", mw("outer")).Group("/b", mw("inner"))
	g.Get("/c", "", ok, mw("route"))

	r.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/a/b/c", nil))
	assert.Equal(t, []string{"outer", "inner", "route"}, order)
}
