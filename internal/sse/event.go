package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Event types defined by the GraphQL-over-SSE convention.
const (
	EventNext     = "next"
	EventError    = "error"
	EventComplete = "complete"
)

// Event is a single logical SSE event. It is framed and written
// immediately and never retained.
type Event struct {
	// ID is reused for every event of one subscription.
	ID string
	// Event is one of EventNext, EventError or EventComplete.
	Event string
	// Data is the JSON payload. A nil Data omits the data line.
	Data json.RawMessage
}

// NewEvent builds an event whose payload is the JSON encoding of payload.
func NewEvent(id, event string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return Event{ID: id, Event: event, Data: data}, nil
}

// Next builds a "next" event carrying payload.
func Next(id string, payload any) (Event, error) {
	return NewEvent(id, EventNext, payload)
}

// Complete builds the terminal "complete" event, which has no payload.
func Complete(id string) Event {
	return Event{ID: id, Event: EventComplete}
}

// HasData reports whether the event carries a payload.
func (e Event) HasData() bool {
	return e.Data != nil
}

// idReplacer drops line breaks, which would end the id field early.
var idReplacer = strings.NewReplacer("\r", "", "\n", "")

// Frame serializes an event into its wire form:
//
//	id: <id>\nevent: <event>\ndata: <json>\n\n
//
// Multi-line payloads are split across several data lines as the SSE
// format requires.
func Frame(e Event) []byte {
	var buf bytes.Buffer
	buf.Grow(len(e.ID) + len(e.Event) + len(e.Data) + 24)

	buf.WriteString("id: ")
	buf.WriteString(idReplacer.Replace(e.ID))
	buf.WriteString("\nevent: ")
	buf.WriteString(e.Event)
	buf.WriteByte('\n')

	if e.Data != nil {
		for _, line := range bytes.Split(e.Data, []byte("\n")) {
			buf.WriteString("data: ")
			buf.Write(bytes.TrimSuffix(line, []byte("\r")))
			buf.WriteByte('\n')
		}
	}

	buf.WriteByte('\n')
	return buf.Bytes()
}
