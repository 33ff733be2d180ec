package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL,
	balance    BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS transactions (
	seq           BIGSERIAL PRIMARY KEY,
	id            TEXT NOT NULL UNIQUE,
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	date          TEXT NOT NULL,
	description   TEXT NOT NULL,
	amount        BIGINT NOT NULL,
	balance_after BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_account_seq ON transactions(account_id, seq);
`

// PostgresLedger stores the ledger in PostgreSQL. Balance changes lock the
// account row with SELECT ... FOR UPDATE; transfers lock both rows in id
// order to avoid deadlocks.
type PostgresLedger struct {
	db *pgxpool.Pool
}

var _ Ledger = (*PostgresLedger)(nil)

// OpenPostgres connects to connString and migrates the schema.
func OpenPostgres(ctx context.Context, connString string) (*PostgresLedger, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to migrate database: %w", err)
	}

	return &PostgresLedger{db: pool}, nil
}

func (l *PostgresLedger) FindAccount(ctx context.Context, id string) (Account, error) {
	var acc Account
	err := l.db.QueryRow(ctx,
		"SELECT id, name, type, balance FROM accounts WHERE id = $1", id,
	).Scan(&acc.ID, &acc.Name, &acc.Type, &acc.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("account query failed: %w", err)
	}
	return acc, nil
}

func (l *PostgresLedger) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := l.db.Query(ctx, "SELECT id, name, type, balance FROM accounts ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("accounts query failed: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Account, error) {
		var acc Account
		err := row.Scan(&acc.ID, &acc.Name, &acc.Type, &acc.Balance)
		return acc, err
	})
}

func (l *PostgresLedger) CreateAccount(ctx context.Context, account Account) error {
	_, err := l.db.Exec(ctx,
		"INSERT INTO accounts (id, name, type, balance) VALUES ($1, $2, $3, $4)",
		account.ID, account.Name, account.Type, account.Balance,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAccountExists
		}
		return fmt.Errorf("account insert failed: %w", err)
	}
	return nil
}

func (l *PostgresLedger) UpdateBalance(ctx context.Context, id string, balance int64) error {
	tag, err := l.db.Exec(ctx, "UPDATE accounts SET balance = $1 WHERE id = $2", balance, id)
	if err != nil {
		return fmt.Errorf("balance update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (l *PostgresLedger) AdjustBalance(ctx context.Context, id string, delta int64) (int64, error) {
	var balance int64
	err := pgx.BeginFunc(ctx, l.db, func(tx pgx.Tx) error {
		current, err := lockBalance(ctx, tx, id)
		if err != nil {
			return err
		}
		balance = current + delta
		_, err = tx.Exec(ctx, "UPDATE accounts SET balance = $1 WHERE id = $2", balance, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (l *PostgresLedger) AppendTransaction(ctx context.Context, rec Transaction) (Transaction, error) {
	if _, err := l.FindAccount(ctx, rec.AccountID); err != nil {
		return Transaction{}, err
	}
	rec = fillTransaction(rec)
	if err := insertPostgresTransaction(ctx, l.db, rec); err != nil {
		return Transaction{}, err
	}
	return rec, nil
}

func (l *PostgresLedger) PostTransaction(ctx context.Context, accountID string, amount int64, description string) (Transaction, error) {
	var rec Transaction
	err := pgx.BeginFunc(ctx, l.db, func(tx pgx.Tx) error {
		current, err := lockBalance(ctx, tx, accountID)
		if err != nil {
			return err
		}
		rec, err = postPostgres(ctx, tx, accountID, current, amount, description)
		return err
	})
	return rec, err
}

func (l *PostgresLedger) Transfer(ctx context.Context, req TransferRequest) (Transaction, error) {
	if err := req.Validate(); err != nil {
		return Transaction{}, err
	}

	var debit Transaction
	err := pgx.BeginFunc(ctx, l.db, func(tx pgx.Tx) error {
		// Deterministic locking order prevents deadlocks between
		// opposite transfers.
		first, second := req.FromAccountID, req.ToAccountID
		if first > second {
			first, second = second, first
		}
		balances := make(map[string]int64, 2)
		for _, id := range []string{first, second} {
			balance, err := lockBalance(ctx, tx, id)
			if err != nil {
				return err
			}
			balances[id] = balance
		}

		description := transferDescription(req)
		var err error
		debit, err = postPostgres(ctx, tx, req.FromAccountID, balances[req.FromAccountID], -req.Amount, description)
		if err != nil {
			return err
		}
		_, err = postPostgres(ctx, tx, req.ToAccountID, balances[req.ToAccountID], req.Amount, description)
		return err
	})
	return debit, err
}

func (l *PostgresLedger) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]Transaction, error) {
	if _, err := l.FindAccount(ctx, accountID); err != nil {
		return nil, err
	}

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := l.db.Query(ctx,
		`SELECT id, date, description, amount, balance_after, account_id
		 FROM transactions WHERE account_id = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3`,
		accountID, limitArg, max(offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("transactions query failed: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Transaction, error) {
		var rec Transaction
		err := row.Scan(&rec.ID, &rec.Date, &rec.Description, &rec.Amount, &rec.BalanceAfter, &rec.AccountID)
		return rec, err
	})
}

func (l *PostgresLedger) Ping(ctx context.Context) error {
	return l.db.Ping(ctx)
}

func (l *PostgresLedger) Close() error {
	l.db.Close()
	return nil
}

func lockBalance(ctx context.Context, tx pgx.Tx, id string) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, "SELECT balance FROM accounts WHERE id = $1 FOR UPDATE", id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock acquisition failed: %w", err)
	}
	return balance, nil
}

func postPostgres(ctx context.Context, tx pgx.Tx, accountID string, current, amount int64, description string) (Transaction, error) {
	balance := current + amount
	if _, err := tx.Exec(ctx, "UPDATE accounts SET balance = $1 WHERE id = $2", balance, accountID); err != nil {
		return Transaction{}, fmt.Errorf("balance update failed: %w", err)
	}
	rec := fillTransaction(Transaction{
		AccountID:    accountID,
		Amount:       amount,
		Description:  description,
		BalanceAfter: balance,
	})
	if err := insertPostgresTransaction(ctx, tx, rec); err != nil {
		return Transaction{}, err
	}
	return rec, nil
}

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertPostgresTransaction(ctx context.Context, db pgExecer, rec Transaction) error {
	_, err := db.Exec(ctx,
		`INSERT INTO transactions (id, account_id, date, description, amount, balance_after)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.AccountID, rec.Date, rec.Description, rec.Amount, rec.BalanceAfter,
	)
	if err != nil {
		return fmt.Errorf("transaction insert failed: %w", err)
	}
	return nil
}
