package sse

import (
	"io"
	"net/http"
)

// SetHeaders sets the response headers of an event stream.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

// Writer frames events onto an underlying writer and flushes after each
// one, so an event is on the wire before the next is scheduled.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. Flushing is a no-op when w is not an http.Flusher.
func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// WriteEvent writes one complete frame and flushes it.
func (w *Writer) WriteEvent(e Event) error {
	if _, err := w.w.Write(Frame(e)); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// Flush pushes buffered data to the client.
func (w *Writer) Flush() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}
