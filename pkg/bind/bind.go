// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shashiranjanraj/faultline/config"
	"github.com/shashiranjanraj/faultline/pkg/validate"
)

// ErrBodyTooLarge is returned (wrapped) when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// ErrEmptyBody is returned when there is nothing to decode.
var ErrEmptyBody = errors.New("request body is empty")

// maxBodyBytes returns the configured request body size limit (default 1 MB).
func maxBodyBytes() int64 {
	n := config.GetInt64("MAX_BODY_BYTES", 1<<20)
	if n <= 0 {
		return 1 << 20
	}
	return n
}

// JSON decodes r.Body with the configured MAX_BODY_BYTES limit.
// See JSONLimit.
func JSON(r *http.Request, dest interface{}) (map[string]string, error) {
	return JSONLimit(r, dest, maxBodyBytes())
}

// JSONLimit decodes r.Body as a single JSON value into dest and validates it.
// Unknown fields are rejected.
// Returns (errs, nil) when there are validation failures and (nil, err) when
// the body is malformed or larger than limit; errors.Is(err, ErrBodyTooLarge)
// identifies the latter.
func JSONLimit(r *http.Request, dest interface{}, limit int64) (map[string]string, error) {
	if r.Body == nil {
		return nil, ErrEmptyBody
	}
	r.Body = http.MaxBytesReader(nil, r.Body, limit)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return nil, decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err != nil {
			if tooLarge := decodeError(err); errors.Is(tooLarge, ErrBodyTooLarge) {
				return nil, tooLarge
			}
		}
		return nil, errors.New("invalid JSON: body must contain a single JSON value")
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}

func decodeError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w (max %d bytes)", ErrBodyTooLarge, maxErr.Limit)
	}
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	return fmt.Errorf("invalid JSON: %w", err)
}
