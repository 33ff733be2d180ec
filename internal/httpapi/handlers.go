package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/sse"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/stream"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/subscription"
)

// Default page size of the transaction history.
const defaultTransactionLimit = 30

// Handlers contains all HTTP request handlers
type Handlers struct {
	ledger       ledger.Ledger
	engine       *stream.Engine
	router       *subscription.Router
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(l ledger.Ledger, engine *stream.Engine, router *subscription.Router, maxBodyBytes int64, logger *slog.Logger) *Handlers {
	return &Handlers{
		ledger:       l,
		engine:       engine,
		router:       router,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Subscription endpoint

// Subscribe handles POST /api/graphql-sse. Malformed requests are answered
// with 400 and a JSON error body; everything past validation is reported
// in-band on a 200 event stream.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.writeGraphQLError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	req, err := subscription.Validate(body)
	if err != nil {
		h.writeGraphQLError(w, subscription.Message(err), http.StatusBadRequest)
		return
	}

	route, routeErr := h.router.Route(req)

	// Set SSE headers
	sse.SetHeaders(w.Header())

	// Send success status
	w.WriteHeader(http.StatusOK)
	writer := sse.NewWriter(w)
	writer.Flush()
	sink := stream.NewWriterSink(writer)

	if routeErr != nil {
		if err := h.engine.Reject(r.Context(), req.ID, subscription.Message(routeErr), sink); err != nil {
			h.logger.Debug("failed to write rejection", "sse_id", req.ID, "error", err)
		}
		return
	}

	h.engine.Run(r.Context(), route, sink)
}

// Account endpoints

// ListAccounts handles GET /api/v1/accounts
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.ListAccounts(r.Context())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if accounts == nil {
		accounts = []ledger.Account{}
	}

	writeJSON(w, AccountsResponse{Accounts: accounts}, http.StatusOK)
}

// GetAccount handles GET /api/v1/accounts/{id}
func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.ledger.FindAccount(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	writeJSON(w, acc, http.StatusOK)
}

// ListTransactions handles GET /api/v1/accounts/{id}/transactions
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	limit, err := queryInt(r, "limit", defaultTransactionLimit)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Unknown accounts are a 404, not an empty page.
	if _, err := h.ledger.FindAccount(r.Context(), accountID); err != nil {
		h.writeLedgerError(w, err)
		return
	}

	txns, err := h.ledger.ListTransactions(r.Context(), accountID, limit, offset)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if txns == nil {
		txns = []ledger.Transaction{}
	}

	writeJSON(w, TransactionsResponse{
		AccountID:    accountID,
		Transactions: txns,
		Limit:        limit,
		Offset:       offset,
		Count:        len(txns),
	}, http.StatusOK)
}

// Mutation endpoints

// CreateTransfer handles POST /api/v1/transfers
func (h *Handlers) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.FromAccountID == "" || req.ToAccountID == "" {
		writeError(w, "fromAccountId and toAccountId are required", http.StatusBadRequest)
		return
	}

	txn, err := h.ledger.Transfer(r.Context(), ledger.TransferRequest{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
	})
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.logger.Info("transfer posted", "from", req.FromAccountID, "to", req.ToAccountID, "amount", req.Amount)
	writeJSON(w, txn, http.StatusCreated)
}

// CreatePayment handles POST /api/v1/payments
func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.FromAccountID == "" {
		writeError(w, "fromAccountId is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ExternalIBAN) == "" {
		writeError(w, "externalIban is required", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		writeError(w, "Amount must be positive", http.StatusUnprocessableEntity)
		return
	}

	description := req.Description
	if description == "" {
		description = "Payment to " + req.ExternalIBAN
	}

	txn, err := h.ledger.PostTransaction(r.Context(), req.FromAccountID, -req.Amount, description)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.logger.Info("payment posted", "from", req.FromAccountID, "amount", req.Amount)
	writeJSON(w, txn, http.StatusCreated)
}

// Admin endpoints

// AdminListStreams handles GET /api/v1/admin/streams
func (h *Handlers) AdminListStreams(w http.ResponseWriter, r *http.Request) {
	streams := h.engine.Sessions()
	writeJSON(w, AdminStreamsResponse{Streams: streams, Count: len(streams)}, http.StatusOK)
}

// Health endpoint

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Healthy:       true,
		LedgerHealthy: true,
		ActiveStreams: h.engine.ActiveCount(),
		Message:       "All systems operational",
	}

	status := http.StatusOK
	if err := h.ledger.Ping(r.Context()); err != nil {
		resp.Healthy = false
		resp.LedgerHealthy = false
		resp.Message = fmt.Sprintf("Ledger unavailable: %v", err)
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, resp, status)
}

// Helper methods

// writeGraphQLError answers the subscription endpoint with a GraphQL error
// envelope instead of an event stream.
func (h *Handlers) writeGraphQLError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, subscription.ErrorResult(message), statusCode)
}

// writeLedgerError maps ledger errors onto HTTP statuses.
func (h *Handlers) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeError(w, "Account not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, "Amount must be positive", http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrSameAccount):
		writeError(w, "Cannot transfer to self", http.StatusUnprocessableEntity)
	default:
		h.logger.Error("ledger operation failed", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON validates the content type and decodes the body into dst. It
// writes the error response and returns false on failure.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := validateJSON(r); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// validateJSON validates that the request has valid JSON content-type
func validateJSON(r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.New("Content-Type must be application/json")
	}
	return nil
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
