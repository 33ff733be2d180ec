package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	type    TEXT NOT NULL,
	balance INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	date          TEXT NOT NULL,
	description   TEXT NOT NULL,
	amount        INTEGER NOT NULL,
	balance_after INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_account_seq ON transactions(account_id, seq);
`

// SQLiteLedger stores the ledger in a SQLite database. A single connection
// is used, so every statement and transaction is serialized.
type SQLiteLedger struct {
	db *sql.DB
}

var _ Ledger = (*SQLiteLedger)(nil)

// OpenSQLite opens (and migrates) the database at dsn, e.g. ":memory:" or
// "file:ledger.db".
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to migrate sqlite database: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) FindAccount(ctx context.Context, id string) (Account, error) {
	var acc Account
	err := l.db.QueryRowContext(ctx,
		"SELECT id, name, type, balance FROM accounts WHERE id = ?", id,
	).Scan(&acc.ID, &acc.Name, &acc.Type, &acc.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("account query failed: %w", err)
	}
	return acc, nil
}

func (l *SQLiteLedger) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT id, name, type, balance FROM accounts ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("accounts query failed: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Type, &acc.Balance); err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) CreateAccount(ctx context.Context, account Account) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO accounts (id, name, type, balance) VALUES (?, ?, ?, ?)",
		account.ID, account.Name, account.Type, account.Balance,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAccountExists
		}
		return fmt.Errorf("account insert failed: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) UpdateBalance(ctx context.Context, id string, balance int64) error {
	res, err := l.db.ExecContext(ctx, "UPDATE accounts SET balance = ? WHERE id = ?", balance, id)
	if err != nil {
		return fmt.Errorf("balance update failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (l *SQLiteLedger) AdjustBalance(ctx context.Context, id string, delta int64) (int64, error) {
	var balance int64
	err := l.db.QueryRowContext(ctx,
		"UPDATE accounts SET balance = balance + ? WHERE id = ? RETURNING balance", delta, id,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("balance update failed: %w", err)
	}
	return balance, nil
}

func (l *SQLiteLedger) AppendTransaction(ctx context.Context, rec Transaction) (Transaction, error) {
	if _, err := l.FindAccount(ctx, rec.AccountID); err != nil {
		return Transaction{}, err
	}
	rec = fillTransaction(rec)
	if err := insertSQLiteTransaction(ctx, l.db, rec); err != nil {
		return Transaction{}, err
	}
	return rec, nil
}

func (l *SQLiteLedger) PostTransaction(ctx context.Context, accountID string, amount int64, description string) (Transaction, error) {
	var rec Transaction
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		rec, err = postSQLite(ctx, tx, accountID, amount, description)
		return err
	})
	return rec, err
}

func (l *SQLiteLedger) Transfer(ctx context.Context, req TransferRequest) (Transaction, error) {
	if err := req.Validate(); err != nil {
		return Transaction{}, err
	}

	var debit Transaction
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM accounts WHERE id = ?", req.ToAccountID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		description := transferDescription(req)
		debit, err = postSQLite(ctx, tx, req.FromAccountID, -req.Amount, description)
		if err != nil {
			return err
		}
		_, err = postSQLite(ctx, tx, req.ToAccountID, req.Amount, description)
		return err
	})
	return debit, err
}

func (l *SQLiteLedger) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]Transaction, error) {
	if _, err := l.FindAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, date, description, amount, balance_after, account_id
		 FROM transactions WHERE account_id = ? ORDER BY seq DESC LIMIT ? OFFSET ?`,
		accountID, limit, max(offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("transactions query failed: %w", err)
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		var rec Transaction
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.Description, &rec.Amount, &rec.BalanceAfter, &rec.AccountID); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

type sqliteExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func postSQLite(ctx context.Context, tx sqliteExecer, accountID string, amount int64, description string) (Transaction, error) {
	var balance int64
	err := tx.QueryRowContext(ctx,
		"UPDATE accounts SET balance = balance + ? WHERE id = ? RETURNING balance", amount, accountID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrAccountNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("balance update failed: %w", err)
	}

	rec := fillTransaction(Transaction{
		AccountID:    accountID,
		Amount:       amount,
		Description:  description,
		BalanceAfter: balance,
	})
	if err := insertSQLiteTransaction(ctx, tx, rec); err != nil {
		return Transaction{}, err
	}
	return rec, nil
}

func insertSQLiteTransaction(ctx context.Context, db sqliteExecer, rec Transaction) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, date, description, amount, balance_after)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AccountID, rec.Date, rec.Description, rec.Amount, rec.BalanceAfter,
	)
	if err != nil {
		return fmt.Errorf("transaction insert failed: %w", err)
	}
	return nil
}
