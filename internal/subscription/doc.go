// Package subscription parses GraphQL-over-HTTP subscription requests and
// decides which ledger stream serves them.
//
// Validate turns a raw POST body into a Request. Route matches the request
// against the registered subscription operations, first by exact
// operationName and then by searching the query text for a registered name,
// and extracts the variables the chosen stream requires.
package subscription
