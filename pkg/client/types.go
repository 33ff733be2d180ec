package client

import (
	"encoding/json"
	"time"
)

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the HTTP API (e.g., "http://localhost:4000")
	ServerURL string

	// Timeout for request/response calls. Subscriptions are bounded by
	// their context only.
	Timeout time.Duration
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Account is one ledger account. Balances are in cents.
type Account struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance int64  `json:"balance"`
}

// Transaction is one posted change to an account balance
type Transaction struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balanceAfter"`
	AccountID    string `json:"accountId,omitempty"`
}

// AccountsResponse lists every account
type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

// TransactionsResponse is one page of an account's history, newest first
type TransactionsResponse struct {
	AccountID    string        `json:"accountId"`
	Transactions []Transaction `json:"transactions"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
	Count        int           `json:"count"`
}

// TransferRequest moves money between two ledger accounts
type TransferRequest struct {
	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
}

// PaymentRequest pays money out to an external IBAN
type PaymentRequest struct {
	FromAccountID string `json:"fromAccountId"`
	ExternalIBAN  string `json:"externalIban"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Healthy       bool   `json:"healthy"`
	LedgerHealthy bool   `json:"ledgerHealthy"`
	ActiveStreams int    `json:"activeStreams"`
	Message       string `json:"message"`
}

// StreamInfo describes one running subscription stream on the server
type StreamInfo struct {
	SSEID     string    `json:"sseId"`
	AccountID string    `json:"accountId"`
	Kind      string    `json:"kind"`
	Operation string    `json:"operation"`
	State     string    `json:"state"`
	Active    bool      `json:"active"`
	Emitted   int       `json:"emitted"`
	StartedAt time.Time `json:"startedAt"`
}

// StreamsResponse represents admin view of running streams
type StreamsResponse struct {
	Streams []StreamInfo `json:"streams"`
	Count   int          `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SubscriptionRequest is the GraphQL-over-SSE request body
type SubscriptionRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
	ID            string         `json:"id,omitempty"`
}

// GraphQLError is one entry of a GraphQL errors array
type GraphQLError struct {
	Message string `json:"message"`
}

// GraphQLResponse is the payload of next and error events
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// BalanceUpdate is the accountBalanceUpdated payload
type BalanceUpdate struct {
	ID          string `json:"id"`
	Balance     int64  `json:"balance"`
	Payment     int64  `json:"payment,omitempty"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// TransactionUpdate is the transactionAdded payload
type TransactionUpdate struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balanceAfter"`
}
