package ledger

import (
	"context"
	"sync"
)

// MemoryLedger keeps accounts and transactions in process memory. All
// mutations are serialized by one lock. It is safe for concurrent use.
type MemoryLedger struct {
	mu           sync.RWMutex
	accounts     map[string]*Account
	order        []string
	transactions map[string][]Transaction
	closed       bool
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts:     make(map[string]*Account),
		transactions: make(map[string][]Transaction),
	}
}

func (l *MemoryLedger) FindAccount(ctx context.Context, id string) (Account, error) {
	if err := checkContext(ctx); err != nil {
		return Account{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return Account{}, ErrClosed
	}
	acc, ok := l.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return *acc, nil
}

func (l *MemoryLedger) ListAccounts(ctx context.Context) ([]Account, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrClosed
	}
	out := make([]Account, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.accounts[id])
	}
	return out, nil
}

func (l *MemoryLedger) CreateAccount(ctx context.Context, account Account) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if _, exists := l.accounts[account.ID]; exists {
		return ErrAccountExists
	}
	acc := account
	l.accounts[account.ID] = &acc
	l.order = append(l.order, account.ID)
	return nil
}

func (l *MemoryLedger) UpdateBalance(ctx context.Context, id string, balance int64) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.account(id)
	if err != nil {
		return err
	}
	acc.Balance = balance
	return nil
}

func (l *MemoryLedger) AdjustBalance(ctx context.Context, id string, delta int64) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.account(id)
	if err != nil {
		return 0, err
	}
	acc.Balance += delta
	return acc.Balance, nil
}

func (l *MemoryLedger) AppendTransaction(ctx context.Context, rec Transaction) (Transaction, error) {
	if err := checkContext(ctx); err != nil {
		return Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.account(rec.AccountID); err != nil {
		return Transaction{}, err
	}
	rec = fillTransaction(rec)
	l.transactions[rec.AccountID] = append(l.transactions[rec.AccountID], rec)
	return rec, nil
}

func (l *MemoryLedger) PostTransaction(ctx context.Context, accountID string, amount int64, description string) (Transaction, error) {
	if err := checkContext(ctx); err != nil {
		return Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.post(accountID, amount, description)
}

func (l *MemoryLedger) Transfer(ctx context.Context, req TransferRequest) (Transaction, error) {
	if err := req.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := checkContext(ctx); err != nil {
		return Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.account(req.FromAccountID); err != nil {
		return Transaction{}, err
	}
	if _, err := l.account(req.ToAccountID); err != nil {
		return Transaction{}, err
	}

	description := transferDescription(req)
	debit, err := l.post(req.FromAccountID, -req.Amount, description)
	if err != nil {
		return Transaction{}, err
	}
	if _, err := l.post(req.ToAccountID, req.Amount, description); err != nil {
		return Transaction{}, err
	}
	return debit, nil
}

func (l *MemoryLedger) ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]Transaction, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.account(accountID); err != nil {
		return nil, err
	}

	history := l.transactions[accountID]
	out := make([]Transaction, 0)
	for i := len(history) - 1 - max(offset, 0); i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, history[i])
	}
	return out, nil
}

func (l *MemoryLedger) Ping(ctx context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}

func (l *MemoryLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// account must be called with l.mu held.
func (l *MemoryLedger) account(id string) (*Account, error) {
	if l.closed {
		return nil, ErrClosed
	}
	acc, ok := l.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

// post must be called with l.mu held for writing.
func (l *MemoryLedger) post(accountID string, amount int64, description string) (Transaction, error) {
	acc, err := l.account(accountID)
	if err != nil {
		return Transaction{}, err
	}
	acc.Balance += amount
	rec := fillTransaction(Transaction{
		AccountID:    accountID,
		Amount:       amount,
		Description:  description,
		BalanceAfter: acc.Balance,
	})
	l.transactions[accountID] = append(l.transactions[accountID], rec)
	return rec, nil
}
