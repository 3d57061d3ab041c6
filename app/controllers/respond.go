// Package controllers turns HTTP requests into service calls and service
// errors into status codes. Handlers are the error boundary: nothing a
// service returns reaches the client unmapped.
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/ratelimit"
)

// fail writes the response for err. notFound is the 404 message for the
// resource the handler was looking up.
func fail(c *ctx.Context, err error, notFound string) {
	var (
		invalid   *services.ValidationError
		throttled *services.ThrottledError
		stock     *services.StockError
	)

	switch {
	case errors.As(err, &invalid):
		c.ValidationError(invalid.Fields)
	case errors.As(err, &stock):
		c.ErrorWithData(http.StatusConflict, "Insufficient stock", stock.Lines)
	case errors.As(err, &throttled):
		c.SetHeader("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(throttled.RetryAfter)))
		c.Error(http.StatusTooManyRequests, "Too many login attempts")
	case errors.Is(err, services.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.NotFound(notFound)
	case errors.Is(err, services.ErrForbidden):
		c.Forbidden("You can only change your own content")
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized("Invalid email or password")
	case errors.Is(err, services.ErrSessionExpired):
		c.Unauthorized("Session expired")
	case errors.Is(err, services.ErrUnauthorized):
		c.Unauthorized()
	case errors.Is(err, services.ErrQueueFull):
		c.Error(http.StatusTooManyRequests, "Export queue is full")
	case errors.Is(err, services.ErrExportNotReady):
		c.Error(http.StatusConflict, "Export not ready")
	case errors.Is(err, services.ErrTooLarge):
		c.Error(http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, services.ErrUnsupported):
		c.Error(http.StatusUnsupportedMediaType, "Unsupported file type")
	case errors.Is(err, store.ErrInvalidPatch), errors.Is(err, services.ErrInvalidInput):
		c.Error(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflict), errors.Is(err, store.ErrAlreadyExists):
		c.Error(http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled) && c.Context().Err() != nil:
		// The client went away; there is nobody to answer.
		logger.WithCtx(c.Context()).Info("request abandoned", "path", c.Path(), "error", err)
	default:
		c.ServerError(err)
	}
}

// required returns the query parameter key, or writes a 400 and returns
// false when it is missing.
func required(c *ctx.Context, key string) (string, bool) {
	v := c.Query(key)
	if v == "" {
		c.ValidationError(map[string]string{key: "The " + key + " field is required."})
		return "", false
	}
	return v, true
}

// intQuery parses an optional positive integer query parameter. ok is false
// when it is present but malformed or outside [lo, hi].
func intQuery(c *ctx.Context, key string, def, lo, hi int) (n int, ok bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

type count struct {
	Count int `json:"count"`
}
