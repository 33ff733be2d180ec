package subscription

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Request is a validated GraphQL-over-HTTP subscription request. It lives
// only until routing is done.
type Request struct {
	Query         string
	Variables     map[string]any
	OperationName string
	// ID identifies the subscription on every event of its stream.
	ID string
}

// IDGenerator produces subscription ids for requests that carry none.
type IDGenerator func() string

// NewUUID is the default IDGenerator.
func NewUUID() string {
	return uuid.NewString()
}

// Validate parses raw as a subscription request envelope using NewUUID for
// missing ids.
func Validate(raw []byte) (*Request, error) {
	return ValidateWith(raw, NewUUID)
}

// ValidateWith is Validate with a caller supplied id generator.
func ValidateWith(raw []byte, newID IDGenerator) (*Request, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, newError(ErrMalformedBody, "Invalid JSON body")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, newError(ErrMalformedBody, "Invalid JSON body")
	}
	if dec.More() {
		return nil, newError(ErrMalformedBody, "Invalid JSON body")
	}

	fields, ok := body.(map[string]any)
	if !ok {
		return nil, newError(ErrMalformedBody, "Malformed GraphQL request body")
	}

	query, ok := fields["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newError(ErrMissingQuery, "Missing or invalid 'query' field")
	}

	req := &Request{Query: query, Variables: map[string]any{}}

	// Wrongly typed optional fields count as absent so that routing can
	// report them in-band.
	if v, ok := fields["variables"].(map[string]any); ok {
		req.Variables = v
	}
	if v, ok := fields["operationName"].(string); ok {
		req.OperationName = v
	}

	switch v := fields["id"].(type) {
	case string:
		req.ID = v
	case json.Number:
		req.ID = v.String()
	}
	// A line break in the id would split its frames on the wire.
	if req.ID == "" || strings.ContainsAny(req.ID, "\r\n") {
		req.ID = newID()
	}

	return req, nil
}

// StringVariable returns variable name as a string. JSON numbers are
// accepted and rendered in their literal form. Empty strings count as
// absent.
func (r *Request) StringVariable(name string) (string, bool) {
	switch v := r.Variables[name].(type) {
	case string:
		return v, v != ""
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}
