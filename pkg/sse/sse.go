// Package sse writes Server-Sent Events.
//
//	stream, err := sse.New(c.W, c.R)
//	if err != nil {
//	    c.ServerError(err)
//	    return
//	}
//	for snap := range updates {
//	    if err := stream.Send("status", snap); err != nil {
//	        return // client went away
//	    }
//	}
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnsupported is returned when the ResponseWriter cannot flush.
var ErrUnsupported = errors.New("sse: streaming unsupported")

// ErrClosed is returned once the client has disconnected.
var ErrClosed = errors.New("sse: client disconnected")

// Stream is an open event stream to one client.
type Stream struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
	seq     int
}

// New sets the event-stream headers and sends them.
func New(w http.ResponseWriter, r *http.Request) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, r: r, flusher: flusher}, nil
}

// Send writes a named event with a JSON payload and a sequential id.
func (s *Stream) Send(event string, data any) error {
	if s.Closed() {
		return ErrClosed
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}

	s.seq++
	var b strings.Builder
	fmt.Fprintf(&b, "id: %d\n", s.seq)
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", sanitize(event))
	}
	fmt.Fprintf(&b, "data: %s\n\n", payload)

	if _, err := s.w.Write([]byte(b.String())); err != nil {
		return fmt.Errorf("sse: write: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a keepalive comment line.
func (s *Stream) Comment(msg string) error {
	if s.Closed() {
		return ErrClosed
	}
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", sanitize(msg)); err != nil {
		return fmt.Errorf("sse: write: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// Done is closed when the client disconnects.
func (s *Stream) Done() <-chan struct{} { return s.r.Context().Done() }

// Closed reports whether the client has disconnected.
func (s *Stream) Closed() bool {
	return s.r.Context().Err() != nil
}

// sanitize keeps a field on one line; a newline would start a new field.
func sanitize(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
