// Package sse implements the Server-Sent Events wire framing used by the
// GraphQL-over-SSE subscription endpoint.
//
// A frame carries an id, an event type and an optional JSON payload:
//
//	id: s1
//	event: next
//	data: {"data":{"accountBalanceUpdated":{"id":"acc-1","balance":250000}}}
//
// Frames are terminated by a blank line so the client's event parser fires.
// An event without payload omits the data line entirely, which is distinct
// from an event whose payload is the JSON literal null.
package sse
