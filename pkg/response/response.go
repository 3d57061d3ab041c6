// Package response writes the JSON envelope every faultline endpoint returns:
//
//	{"success":true,"data":{...},"meta":{...},"timestamp":"..."}
//	{"success":false,"error":"Invalid product id","timestamp":"..."}
package response

import (
	"encoding/json"
	"net/http"
	"time"
)

// GenericServerError is the only message a 500 ever exposes.
const GenericServerError = "Internal server error"

// Envelope is the response body shape.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Details   any    `json:"details,omitempty"`
	Meta      any    `json:"meta,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Write stamps body and sends it with status.
func Write(w http.ResponseWriter, status int, body Envelope) {
	if body.Timestamp == "" {
		body.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends a 200 with data.
func Success(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// SuccessWithMeta sends a 200 with data and meta (counts, cursors).
func SuccessWithMeta(w http.ResponseWriter, data, meta any) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data, Meta: meta})
}

// Created sends a 201 with data.
func Created(w http.ResponseWriter, data any) {
	Write(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Accepted sends a 202 with data.
func Accepted(w http.ResponseWriter, data any) {
	Write(w, http.StatusAccepted, Envelope{Success: true, Data: data})
}

// Error sends a failure envelope.
func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope{Error: message})
}

// ErrorWithData sends a failure envelope that still carries data, such as
// the reservation ids of a declined checkout.
func ErrorWithData(w http.ResponseWriter, status int, message string, data any) {
	Write(w, status, Envelope{Error: message, Data: data})
}

// ValidationError sends a 400 with field-level messages in details.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	Write(w, http.StatusBadRequest, Envelope{Error: "Validation failed", Details: errs})
}

// InternalError sends the generic 500.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, GenericServerError)
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}
