package stream

import (
	"github.com/shopspring/decimal"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
)

// Root field names of the subscription results.
const (
	FieldAccountBalanceUpdated = "accountBalanceUpdated"
	FieldTransactionAdded      = "transactionAdded"
)

// BalanceUpdate is the accountBalanceUpdated payload. The snapshot event
// carries only ID and Balance.
type BalanceUpdate struct {
	ID          string `json:"id"`
	Balance     int64  `json:"balance"`
	Payment     int64  `json:"payment,omitempty"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// TransactionUpdate is the transactionAdded payload.
type TransactionUpdate struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balanceAfter"`
}

func transactionUpdate(rec ledger.Transaction) TransactionUpdate {
	return TransactionUpdate{
		ID:           rec.ID,
		Date:         rec.Date,
		Description:  rec.Description,
		Amount:       rec.Amount,
		BalanceAfter: rec.BalanceAfter,
	}
}

// FormatCents renders an amount of cents as dollars, e.g. 250 -> "2.50".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func paymentDescription(cents int64) string {
	return "Payment received: $" + FormatCents(cents)
}
