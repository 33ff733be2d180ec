package stream

import (
	"errors"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/sse"
)

// ErrWriteFailed wraps errors returned by a Sink. A failed write cancels
// the session; nothing is retried.
var ErrWriteFailed = errors.New("event write failed")

// ErrSessionEnded is returned for events emitted after a session reached a
// terminal state.
var ErrSessionEnded = errors.New("session has ended")

// Sink receives the events of one session. Emit must write and flush the
// event before returning. Close is called exactly once when the session
// ends.
type Sink interface {
	Emit(event sse.Event) error
	Close() error
}

// WriterSink adapts an sse.Writer, typically wrapping an HTTP response.
type WriterSink struct {
	w *sse.Writer
}

// NewWriterSink wraps w.
func NewWriterSink(w *sse.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Emit(event sse.Event) error {
	return s.w.WriteEvent(event)
}

// Close flushes anything still buffered. The response itself is closed by
// the HTTP server when the handler returns.
func (s *WriterSink) Close() error {
	s.w.Flush()
	return nil
}
