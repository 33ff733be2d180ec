package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned when no account has the given id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned by CreateAccount for a duplicate id.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidAmount is returned for non-positive transfer amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrSameAccount is returned when a transfer names one account twice.
	ErrSameAccount = errors.New("cannot transfer to the same account")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("ledger is closed")
)

// Account types used by the fixtures.
const (
	TypeChecking = "CHECKING"
	TypeSavings  = "SAVINGS"
	TypeCredit   = "CREDIT"
)

// Account is one ledger account.
type Account struct {
	ID      string `json:"id" toml:"id"`
	Name    string `json:"name" toml:"name"`
	Type    string `json:"type" toml:"type"`
	Balance int64  `json:"balance" toml:"balance"`
}

// Transaction is one posted change to an account balance.
type Transaction struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	// Amount is signed: positive credits, negative debits.
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balanceAfter"`
	AccountID    string `json:"accountId"`
}

// TransferRequest moves Amount from one account to another.
type TransferRequest struct {
	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
}

// Validate checks the request before any account is touched.
func (r TransferRequest) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if r.FromAccountID == r.ToAccountID {
		return ErrSameAccount
	}
	return nil
}

// Ledger stores accounts and their transaction history.
type Ledger interface {
	// FindAccount returns the account or ErrAccountNotFound.
	FindAccount(ctx context.Context, id string) (Account, error)
	// ListAccounts returns all accounts in creation order.
	ListAccounts(ctx context.Context) ([]Account, error)
	// CreateAccount stores a new account or fails with ErrAccountExists.
	CreateAccount(ctx context.Context, account Account) error

	// UpdateBalance overwrites the balance of an account.
	UpdateBalance(ctx context.Context, id string, balance int64) error
	// AdjustBalance atomically adds delta and returns the new balance.
	AdjustBalance(ctx context.Context, id string, delta int64) (int64, error)

	// AppendTransaction stores rec as given, filling in ID and Date when
	// empty. It does not touch the balance.
	AppendTransaction(ctx context.Context, rec Transaction) (Transaction, error)
	// PostTransaction atomically applies amount to the account and appends
	// the matching transaction record.
	PostTransaction(ctx context.Context, accountID string, amount int64, description string) (Transaction, error)
	// Transfer atomically debits the source and credits the destination,
	// returning the debit transaction.
	Transfer(ctx context.Context, req TransferRequest) (Transaction, error)
	// ListTransactions returns an account's transactions newest first.
	ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]Transaction, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// DateLayout renders transaction dates as ISO-8601 UTC with milliseconds.
const DateLayout = "2006-01-02T15:04:05.000Z"

// now is replaced in tests.
var now = time.Now

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// NewTransactionID returns a unique transaction id for accountID.
func NewTransactionID(accountID string) string {
	return "txn-" + accountID + "-" + uuid.NewString()
}

func fillTransaction(rec Transaction) Transaction {
	if rec.ID == "" {
		rec.ID = NewTransactionID(rec.AccountID)
	}
	if rec.Date == "" {
		rec.Date = FormatDate(now())
	}
	return rec
}

func transferDescription(req TransferRequest) string {
	if req.Description != "" {
		return req.Description
	}
	return "Transfer"
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
