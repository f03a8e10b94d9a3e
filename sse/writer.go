package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("sse: streaming not supported")

// ContentType is the media type of an event stream.
const ContentType = "text/event-stream"

// Writer emits events on a single response.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	events  int
}

// NewWriter prepares w for streaming: it sets the event-stream headers and
// lifts the server write deadline, which would otherwise cut long streams.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	// Best effort; the stream still works when the writer has no deadline support.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

// Send encodes v as JSON and writes it as one event.
func (s *Writer) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sse: encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	s.events++
	return nil
}

// KeepAlive writes a comment line, which clients ignore.
func (s *Writer) KeepAlive() error {
	if _, err := fmt.Fprintf(s.w, ": keepalive %d\n\n", time.Now().Unix()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Events returns how many events were sent.
func (s *Writer) Events() int { return s.events }
