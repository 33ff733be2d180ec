package subscription

// GraphQLError is a single entry of a GraphQL errors array.
type GraphQLError struct {
	Message string `json:"message"`
}

// ExecutionResult is the GraphQL response envelope carried by "next" and
// "error" events and by HTTP 400 responses.
type ExecutionResult struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// DataResult wraps a single root field value.
func DataResult(field string, value any) ExecutionResult {
	return ExecutionResult{Data: map[string]any{field: value}}
}

// ErrorResult builds an envelope holding one error message.
func ErrorResult(message string) ExecutionResult {
	return ExecutionResult{Errors: []GraphQLError{{Message: message}}}
}
