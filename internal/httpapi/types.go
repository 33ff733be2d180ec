package httpapi

import (
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/stream"
)

// Request/Response types for the HTTP API

// AccountsResponse lists every account
type AccountsResponse struct {
	Accounts []ledger.Account `json:"accounts"`
}

// TransactionsResponse is one page of an account's history, newest first
type TransactionsResponse struct {
	AccountID    string               `json:"accountId"`
	Transactions []ledger.Transaction `json:"transactions"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
	Count        int                  `json:"count"`
}

// TransferRequest moves money between two ledger accounts
type TransferRequest struct {
	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
}

// PaymentRequest pays money out of a ledger account to an external IBAN
type PaymentRequest struct {
	FromAccountID string `json:"fromAccountId"`
	ExternalIBAN  string `json:"externalIban"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description,omitempty"`
}

// AdminStreamsResponse represents admin view of running subscription streams
type AdminStreamsResponse struct {
	Streams []stream.SessionInfo `json:"streams"`
	Count   int                  `json:"count"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Healthy       bool   `json:"healthy"`
	LedgerHealthy bool   `json:"ledgerHealthy"`
	ActiveStreams int    `json:"activeStreams"`
	Message       string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
