package ledger

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and configures a ledger backend.
type Config struct {
	Backend     string `env:"LEDGER" envDefault:"memory"`
	SQLiteDSN   string `env:"SQLITE_DSN" envDefault:"file:ledgerstream.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	// FixturesPath overrides the embedded demo fixtures.
	FixturesPath string `env:"FIXTURES"`
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDSN == "" {
			return fmt.Errorf("sqlite backend requires a DSN")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres backend requires a DSN")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Backend)
	}
	return nil
}

// Open creates the configured backend and seeds it with fixtures.
func Open(ctx context.Context, cfg Config) (Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fx := DefaultFixtures()
	if cfg.FixturesPath != "" {
		var err error
		if fx, err = LoadFixtures(cfg.FixturesPath); err != nil {
			return nil, err
		}
	}

	var (
		l   Ledger
		err error
	)
	switch cfg.Backend {
	case BackendSQLite:
		l, err = OpenSQLite(ctx, cfg.SQLiteDSN)
	case BackendPostgres:
		l, err = OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		l = NewMemoryLedger()
	}
	if err != nil {
		return nil, err
	}

	if err := Seed(ctx, l, fx, nil); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}
