// Package services holds faultline's domain logic. Controllers map the
// sentinel errors declared here to status codes.
package services

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrQueueFull      = errors.New("queue is full")
	ErrUnsupported    = errors.New("unsupported media type")
	ErrTooLarge       = errors.New("too large")
	ErrUnauthorized   = errors.New("unauthenticated")
	ErrRateLimited    = errors.New("too many attempts")
	ErrSessionExpired = errors.New("session expired")
)
