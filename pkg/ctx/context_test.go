package ctx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/shashiranjanraj/faultline/pkg/ctx"
	"github.com/shashiranjanraj/faultline/pkg/response"
)

func serve(t *testing.T, req *http.Request, h appctx.HandlerFunc) (*httptest.ResponseRecorder, response.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)

	var env response.Envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestSuccessEnvelope(t *testing.T) {
	rec, env := serve(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.SuccessWithMeta([]int{1, 2}, map[string]int{"count": 2})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, []any{1.0, 2.0}, env.Data)
	assert.Equal(t, map[string]any{"count": 2.0}, env.Meta)
	assert.NotEmpty(t, env.Timestamp)
}

func TestErrorEnvelope(t *testing.T) {
	rec, env := serve(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.NotFound("Product not found")
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Product not found", env.Error)
}

func TestParamID(t *testing.T) {
	cases := map[string]bool{"7": true, "abc": false, "0": false, "-3": false, "7.5": false, "": false}
	for in, want := range cases {
		_, ok := appctx.ParseID(in)
		assert.Equal(t, want, ok, "ParseID(%q)", in)
	}

	r := chi.NewRouter()
	var got int
	r.Get("/products/{id}", appctx.Wrap(func(c *appctx.Context) {
		got, _ = c.ParamID("id")
		c.Success(nil)
	}))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/42", nil))
	assert.Equal(t, 42, got)
}

func TestBindJSON(t *testing.T) {
	type input struct {
		Email string `json:"email" validate:"required,email"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"}`))
		rec, _ := serve(t, req, func(c *appctx.Context) {
			var in input
			require.True(t, c.BindJSON(&in))
			c.Success(in.Email)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("validation failure is 400 with details", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
		rec, env := serve(t, req, func(c *appctx.Context) {
			var in input
			assert.False(t, c.BindJSON(&in))
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Validation failed", env.Error)
		assert.Contains(t, env.Details, "email")
	})

	t.Run("unknown field is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","admin":true}`))
		rec, _ := serve(t, req, func(c *appctx.Context) {
			var in input
			assert.False(t, c.BindJSON(&in))
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized body is 413", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 64)+`@b.co"}`))
		rec, _ := serve(t, req, func(c *appctx.Context) {
			var in input
			assert.False(t, c.BindJSONLimit(&in, 16))
		})
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestServerErrorHidesDetails(t *testing.T) {
	rec, env := serve(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.ServerError(errors.New("connection string leaked: postgres://secret"))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, response.GenericServerError, env.Error)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	serve(t, req, func(c *appctx.Context) {
		assert.Equal(t, "abc.def", c.BearerToken())
		c.Success(nil)
	})

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic xyz")
	serve(t, req, func(c *appctx.Context) {
		assert.Empty(t, c.BearerToken())
		c.Success(nil)
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	serve(t, req, func(c *appctx.Context) {
		assert.Equal(t, "1.2.3.4", c.ClientIP())
		c.Success(nil)
	})
}
