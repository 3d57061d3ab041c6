// Package ctx provides the request context every faultline handler receives.
//
// Instead of accepting (http.ResponseWriter, *http.Request), a handler
// receives a single *Context with helpers for params, binding and the JSON
// envelope:
//
//	func ShowProduct(c *ctx.Context) {
//	    id, ok := c.ParamID("id")
//	    if !ok {
//	        c.Error(http.StatusBadRequest, "Invalid product id")
//	        return
//	    }
//	    ...
//	    c.Success(product)
//	}
//
//	router.Get("/products/{id}", "products.show", ctx.Wrap(ShowProduct))
package ctx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/faultline/pkg/bind"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/monitor"
	"github.com/shashiranjanraj/faultline/pkg/response"
	"github.com/shashiranjanraj/faultline/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// ─── Context ──────────────────────────────────────────────────────────────────

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	mu     sync.RWMutex
	store  map[string]any
	status int // 0 until something is written
}

var pool = sync.Pool{
	New: func() any { return &Context{store: make(map[string]any)} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	clear(c.store)
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter.
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// ParamID parses a path parameter as a positive integer id. "abc", "0",
// "-3" and "7.5" all report false.
func (c *Context) ParamID(key string) (int, bool) {
	return ParseID(c.Param(key))
}

// ParseID parses s as a positive base-10 integer.
func ParseID(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Query returns a query-string value, or "".
func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// DefaultQuery returns a query-string value, or def if it is empty.
func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// QueryBool reports whether key is "true" or "1".
func (c *Context) QueryBool(key string) bool {
	switch strings.ToLower(c.Query(key)) {
	case "true", "1":
		return true
	}
	return false
}

// Header returns a request header.
func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// Cookie returns the value of a named cookie.
func (c *Context) Cookie(name string) (string, error) {
	cookie, err := c.R.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// BearerToken returns the token from "Authorization: Bearer <token>", or "".
func (c *Context) BearerToken() string {
	scheme, token, ok := strings.Cut(c.Header("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Body reads the raw request body. It can only be read once.
func (c *Context) Body() ([]byte, error) {
	return io.ReadAll(c.R.Body)
}

func (c *Context) Method() string { return c.R.Method }

func (c *Context) Path() string { return c.R.URL.Path }

// ClientIP returns the client IP, respecting X-Forwarded-For.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	if real := c.R.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	ip := c.R.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// UserAgent returns the User-Agent header.
func (c *Context) UserAgent() string { return c.R.UserAgent() }

// Context returns the request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// ─── Per-request store ────────────────────────────────────────────────────────

// Set stores a value for later middleware or handler code.
func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

// Get retrieves a value from the per-request store.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

// GetString returns a string value from the store, or "".
func (c *Context) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// ─── Binding / Validation ─────────────────────────────────────────────────────

// BindJSON decodes the body into dest and validates it. On failure it writes
// the response and returns false:
//
//   - body over MAX_BODY_BYTES: 413
//   - malformed JSON or unknown fields: 400
//   - validation failures: 400 with details
//
//	var in CheckoutInput
//	if !c.BindJSON(&in) {
//	    return
//	}
func (c *Context) BindJSON(dest any) bool {
	return c.bindResult(bind.JSON(c.R, dest))
}

// BindJSONLimit is BindJSON with an explicit body size limit.
func (c *Context) BindJSONLimit(dest any, limit int64) bool {
	return c.bindResult(bind.JSONLimit(c.R, dest, limit))
}

func (c *Context) bindResult(errs map[string]string, err error) bool {
	switch {
	case errors.Is(err, bind.ErrBodyTooLarge):
		c.Error(http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	case err != nil:
		c.Error(http.StatusBadRequest, err.Error())
		return false
	case validate.HasErrors(errs):
		c.ValidationError(errs)
		return false
	}
	return true
}

// Validate runs validation rules on an already-populated struct.
func (c *Context) Validate(v any) map[string]string {
	return validate.Struct(v)
}

// ─── Response helpers ─────────────────────────────────────────────────────────

// SetHeader sets a response header.
func (c *Context) SetHeader(key, value string) {
	c.W.Header().Set(key, value)
}

// SetCookie sets an HttpOnly, SameSite=Lax cookie. maxAge < 0 deletes it.
func (c *Context) SetCookie(name, value string, maxAge int, secure bool) {
	http.SetCookie(c.W, &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Status writes just the status code.
func (c *Context) Status(code int) {
	c.status = code
	c.W.WriteHeader(code)
}

// Envelope writes body with code.
func (c *Context) Envelope(code int, body response.Envelope) {
	c.status = code
	response.Write(c.W, code, body)
}

// Success sends a 200 with data.
func (c *Context) Success(data any) {
	c.Envelope(http.StatusOK, response.Envelope{Success: true, Data: data})
}

// SuccessWithMeta sends a 200 with data and meta.
func (c *Context) SuccessWithMeta(data, meta any) {
	c.Envelope(http.StatusOK, response.Envelope{Success: true, Data: data, Meta: meta})
}

// Created sends a 201 with data.
func (c *Context) Created(data any) {
	c.Envelope(http.StatusCreated, response.Envelope{Success: true, Data: data})
}

// Accepted sends a 202 with data.
func (c *Context) Accepted(data any) {
	c.Envelope(http.StatusAccepted, response.Envelope{Success: true, Data: data})
}

// Error sends a failure envelope.
func (c *Context) Error(code int, message string) {
	c.Envelope(code, response.Envelope{Error: message})
}

// ErrorWithData sends a failure envelope that also carries data.
func (c *Context) ErrorWithData(code int, message string, data any) {
	c.Envelope(code, response.Envelope{Error: message, Data: data})
}

// ValidationError sends a 400 with field-level details.
func (c *Context) ValidationError(errs map[string]string) {
	c.Envelope(http.StatusBadRequest, response.Envelope{Error: "Validation failed", Details: errs})
}

// Unauthorized sends a 401.
func (c *Context) Unauthorized(message ...string) {
	c.Error(http.StatusUnauthorized, firstOr(message, "Unauthorized"))
}

// Forbidden sends a 403.
func (c *Context) Forbidden(message ...string) {
	c.Error(http.StatusForbidden, firstOr(message, "Forbidden"))
}

// NotFound sends a 404.
func (c *Context) NotFound(message ...string) {
	c.Error(http.StatusNotFound, firstOr(message, "Not found"))
}

// ServerError is the single 500 path: err is logged with the request id,
// forwarded to the error monitor, and the client only sees the generic
// message.
func (c *Context) ServerError(err error) {
	if err == nil {
		err = errors.New("unspecified server error")
	}
	rctx := c.Context()
	eventID := monitor.Capture(rctx, err, c.R)
	logger.WithCtx(rctx).Error("request failed",
		"method", c.R.Method,
		"path", c.R.URL.Path,
		"error", err,
		"event_id", eventID,
	)
	c.Error(http.StatusInternalServerError, response.GenericServerError)
}

// String writes a plain-text response.
func (c *Context) String(code int, format string, args ...any) {
	c.W.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.W.WriteHeader(code)
	c.status = code
	fmt.Fprintf(c.W, format, args...)
}

// Attachment streams r as a download named filename.
func (c *Context) Attachment(filename, contentType string, r io.Reader) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.W.Header().Set("Content-Type", contentType)
	c.W.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.W.Header().Set("X-Content-Type-Options", "nosniff")
	c.W.WriteHeader(http.StatusOK)
	c.status = http.StatusOK
	_, err := io.Copy(c.W, r)
	return err
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }

func firstOr(vals []string, def string) string {
	if len(vals) > 0 && vals[0] != "" {
		return vals[0]
	}
	return def
}
