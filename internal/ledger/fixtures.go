package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed fixtures.toml
var defaultFixtures []byte

// Fixtures describes the seed data of a ledger.
type Fixtures struct {
	// History is the number of past transactions generated per account.
	History  int       `toml:"history"`
	Accounts []Account `toml:"accounts"`
}

// DefaultFixtures returns the built-in demo accounts.
func DefaultFixtures() Fixtures {
	fx, err := ParseFixtures(defaultFixtures)
	if err != nil {
		panic(fmt.Sprintf("embedded fixtures are invalid: %v", err))
	}
	return fx
}

// LoadFixtures reads fixtures from a TOML file.
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes TOML fixtures and validates them.
func ParseFixtures(data []byte) (Fixtures, error) {
	var fx Fixtures
	if err := toml.Unmarshal(data, &fx); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	if fx.History < 0 {
		return Fixtures{}, fmt.Errorf("history cannot be negative")
	}
	seen := make(map[string]bool, len(fx.Accounts))
	for _, acc := range fx.Accounts {
		if acc.ID == "" {
			return Fixtures{}, fmt.Errorf("account id cannot be empty")
		}
		if seen[acc.ID] {
			return Fixtures{}, fmt.Errorf("duplicate account id %q", acc.ID)
		}
		seen[acc.ID] = true
	}
	return fx, nil
}

// Seed creates the fixture accounts and a history of past transactions
// whose BalanceAfter chain ends at each account's balance. Accounts that
// already exist are left untouched, so seeding a persistent ledger twice
// is harmless. A nil rng uses a time-seeded source.
func Seed(ctx context.Context, l Ledger, fx Fixtures, rng *rand.Rand) error {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	for _, acc := range fx.Accounts {
		err := l.CreateAccount(ctx, acc)
		if errors.Is(err, ErrAccountExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed account %s: %w", acc.ID, err)
		}

		// Random +/- $50 movements, replayed forward from the opening
		// balance they imply.
		amounts := make([]int64, fx.History)
		var total int64
		for i := range amounts {
			amounts[i] = int64(rng.IntN(10000)) - 5000
			total += amounts[i]
		}

		balance := acc.Balance - total
		start := now().Add(-time.Duration(fx.History) * 24 * time.Hour)
		for i, amount := range amounts {
			balance += amount
			_, err := l.AppendTransaction(ctx, Transaction{
				ID:           fmt.Sprintf("txn-%s-%d", acc.ID, i),
				AccountID:    acc.ID,
				Amount:       amount,
				Date:         FormatDate(start.Add(time.Duration(i) * 24 * time.Hour)),
				Description:  fmt.Sprintf("Transaction #%d", i+1),
				BalanceAfter: balance,
			})
			if err != nil {
				return fmt.Errorf("seed transactions for %s: %w", acc.ID, err)
			}
		}
	}
	return nil
}
