package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
)

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestListAccounts(t *testing.T) {
	setup := NewTestServerSetup(t, fastStreamConfig())

	rec := setup.Do(t, http.MethodGet, "/api/v1/accounts", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[AccountsResponse](t, rec)
	require.Len(t, resp.Accounts, 3)
	assert.Equal(t, "acc-1", resp.Accounts[0].ID)
	assert.Equal(t, "acc-2", resp.Accounts[1].ID)
	assert.Equal(t, "acc-3", resp.Accounts[2].ID)
}

func TestGetAccount(t *testing.T) {
	setup := NewTestServerSetup(t, fastStreamConfig())

	t.Run("existing_account", func(t *testing.T) {
		rec := setup.Do(t, http.MethodGet, "/api/v1/accounts/acc-1", "")

		require.Equal(t, http.StatusOK, rec.Code)
		acc := decodeBody[ledger.Account](t, rec)
		assert.Equal(t, "acc-1", acc.ID)
		assert.Equal(t, int64(250000), acc.Balance)
	})

	t.Run("unknown_account", func(t *testing.T) {
		rec := setup.Do(t, http.MethodGet, "/api/v1/accounts/missing", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, "Account not found", resp.Message)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestListTransactions(t *testing.T) {
	setup := NewTestServerSetup(t, fastStreamConfig())

	t.Run("default_page", func(t *testing.T) {
		rec := setup.Do(t, http.MethodGet, "/api/v1/accounts/acc-1/transactions", "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[TransactionsResponse](t, rec)
		assert.Equal(t, "acc-1", resp.AccountID)
		assert.Equal(t, 30, resp.Limit)
		assert.Equal(t, 30, resp.Count)
		require.Len(t, resp.Transactions, 30)
		// Newest first, and the newest entry ends at the current balance.
		assert.Equal(t, int64(250000), resp.Transactions[0].BalanceAfter)
		assert.GreaterOrEqual(t, resp.Transactions[0].Date, resp.Transactions[29].Date)
	})

	t.Run("limit_and_offset", func(t *testing.T) {
		all := decodeBody[TransactionsResponse](t, setup.Do(t, http.MethodGet, "/api/v1/accounts/acc-1/transactions", ""))

		rec := setup.Do(t, http.MethodGet, "/api/v1/accounts/acc-1/transactions?limit=5&offset=10", "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[TransactionsResponse](t, rec)
		require.Len(t, resp.Transactions, 5)
		assert.Equal(t, all.Transactions[10:15], resp.Transactions)
	})

	t.Run("invalid_limit", func(t *testing.T) {
		rec := setup.Do(t, http.MethodGet, "/api/v1/accounts/acc-1/transactions?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = setup.Do(t, http.MethodGet, "/api/v1/accounts/acc-1/transactions?offset=-1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown_account", func(t *testing.T) {
		rec := setup.Do(t, http.MethodGet, "/api/v1/accounts/missing/transactions", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreateTransfer(t *testing.T) {
	setup := NewTestServerSetup(t, fastStreamConfig())

	t.Run("moves_money", func(t *testing.T) {
		rec := setup.Do(t, http.MethodPost, "/api/v1/transfers",
			`{"fromAccountId":"acc-2","toAccountId":"acc-1","amount":10000,"description":"Rent"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		txn := decodeBody[ledger.Transaction](t, rec)
		assert.Equal(t, int64(-10000), txn.Amount)
		assert.Equal(t, int64(1490000), txn.BalanceAfter)
		assert.Equal(t, "Rent", txn.Description)
		assert.Equal(t, int64(1490000), setup.Balance(t, "acc-2"))
		assert.Equal(t, int64(260000), setup.Balance(t, "acc-1"))
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"zero_amount", `{"fromAccountId":"acc-1","toAccountId":"acc-2","amount":0}`, http.StatusUnprocessableEntity},
		{"negative_amount", `{"fromAccountId":"acc-1","toAccountId":"acc-2","amount":-5}`, http.StatusUnprocessableEntity},
		{"transfer_to_self", `{"fromAccountId":"acc-1","toAccountId":"acc-1","amount":100}`, http.StatusUnprocessableEntity},
		{"unknown_account", `{"fromAccountId":"acc-1","toAccountId":"nope","amount":100}`, http.StatusNotFound},
		{"missing_accounts", `{"amount":100}`, http.StatusBadRequest},
		{"malformed_body", `{"fromAccountId":`, http.StatusBadRequest},
		{"unknown_field", `{"fromAccountId":"acc-1","toAccountId":"acc-2","amount":100,"extra":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := setup.Balance(t, "acc-1")

			rec := setup.Do(t, http.MethodPost, "/api/v1/transfers", tt.body)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, before, setup.Balance(t, "acc-1"))
		})
	}

	t.Run("wrong_content_type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers",
			strings.NewReader(`{"fromAccountId":"acc-1","toAccountId":"acc-2","amount":100}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()

		setup.Server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Content-Type must be application/json", decodeBody[ErrorResponse](t, rec).Message)
	})
}

func TestCreatePayment(t *testing.T) {
	setup := NewTestServerSetup(t, fastStreamConfig())

	t.Run("default_description", func(t *testing.T) {
		rec := setup.Do(t, http.MethodPost, "/api/v1/payments",
			`{"fromAccountId":"acc-3","externalIban":"DE89370400440532013000","amount":2500}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		txn := decodeBody[ledger.Transaction](t, rec)
		assert.Equal(t, int64(-2500), txn.Amount)
		assert.Equal(t, "Payment to DE89370400440532013000", txn.Description)
		assert.Equal(t, int64(497500), setup.Balance(t, "acc-3"))
	})

	t.Run("explicit_description", func(t *testing.T) {
		rec := setup.Do(t, http.MethodPost, "/api/v1/payments",
			`{"fromAccountId":"acc-3","externalIban":"DE89370400440532013000","amount":100,"description":"Coffee"}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Coffee", decodeBody[ledger.Transaction](t, rec).Description)
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"zero_amount", `{"fromAccountId":"acc-3","externalIban":"X","amount":0}`, http.StatusUnprocessableEntity},
		{"missing_iban", `{"fromAccountId":"acc-3","amount":100}`, http.StatusBadRequest},
		{"missing_account", `{"externalIban":"X","amount":100}`, http.StatusBadRequest},
		{"unknown_account", `{"fromAccountId":"nope","externalIban":"X","amount":100}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := setup.Do(t, http.MethodPost, "/api/v1/payments", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
