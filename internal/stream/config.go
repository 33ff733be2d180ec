package stream

import (
	"errors"
	"time"
)

var (
	// ErrInvalidBurst is returned when burst size bounds are inconsistent.
	ErrInvalidBurst = errors.New("burst size bounds must satisfy 1 <= min <= max")
	// ErrInvalidDelay is returned when burst delay bounds are inconsistent.
	ErrInvalidDelay = errors.New("burst delay bounds must satisfy 0 <= min <= max")
	// ErrInvalidPayment is returned when payment bounds are inconsistent.
	ErrInvalidPayment = errors.New("payment bounds must satisfy 1 <= min <= max")
	// ErrInvalidCap is returned when the balance event cap is not positive.
	ErrInvalidCap = errors.New("balance event cap must be positive")
	// ErrInvalidTransactions is returned for a bad transaction stream setup.
	ErrInvalidTransactions = errors.New("transaction count must be positive, interval non-negative and amount min <= max")
)

// Config holds the timing and sizing of subscription streams. Amounts are
// in cents.
type Config struct {
	// BurstMin and BurstMax bound the number of payments in one burst.
	BurstMin int `env:"BURST_MIN" envDefault:"2"`
	BurstMax int `env:"BURST_MAX" envDefault:"8"`

	// BurstDelayMin and BurstDelayMax bound the pause between bursts.
	BurstDelayMin time.Duration `env:"BURST_DELAY_MIN" envDefault:"200ms"`
	BurstDelayMax time.Duration `env:"BURST_DELAY_MAX" envDefault:"2s"`

	PaymentMin int64 `env:"PAYMENT_MIN" envDefault:"100"`
	PaymentMax int64 `env:"PAYMENT_MAX" envDefault:"800"`

	// BalanceEventCap is the number of payment events after which a
	// balance stream completes. The initial snapshot is not counted.
	BalanceEventCap int `env:"BALANCE_EVENT_CAP" envDefault:"300"`

	TransactionCount     int           `env:"TRANSACTION_COUNT" envDefault:"3"`
	TransactionInterval  time.Duration `env:"TRANSACTION_INTERVAL" envDefault:"1s"`
	TransactionAmountMin int64         `env:"TRANSACTION_AMOUNT_MIN" envDefault:"-5000"`
	TransactionAmountMax int64         `env:"TRANSACTION_AMOUNT_MAX" envDefault:"4999"`
}

// DefaultConfig returns the reference stream behaviour.
func DefaultConfig() Config {
	return Config{
		BurstMin:             2,
		BurstMax:             8,
		BurstDelayMin:        200 * time.Millisecond,
		BurstDelayMax:        2 * time.Second,
		PaymentMin:           100,
		PaymentMax:           800,
		BalanceEventCap:      300,
		TransactionCount:     3,
		TransactionInterval:  time.Second,
		TransactionAmountMin: -5000,
		TransactionAmountMax: 4999,
	}
}

// SetDefaults fills zero-valued fields from DefaultConfig. Delays and the
// transaction amount range are only defaulted when both bounds are zero.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.BurstMin == 0 && c.BurstMax == 0 {
		c.BurstMin, c.BurstMax = d.BurstMin, d.BurstMax
	}
	if c.BurstDelayMin == 0 && c.BurstDelayMax == 0 {
		c.BurstDelayMin, c.BurstDelayMax = d.BurstDelayMin, d.BurstDelayMax
	}
	if c.PaymentMin == 0 && c.PaymentMax == 0 {
		c.PaymentMin, c.PaymentMax = d.PaymentMin, d.PaymentMax
	}
	if c.BalanceEventCap == 0 {
		c.BalanceEventCap = d.BalanceEventCap
	}
	if c.TransactionCount == 0 {
		c.TransactionCount = d.TransactionCount
	}
	if c.TransactionInterval == 0 {
		c.TransactionInterval = d.TransactionInterval
	}
	if c.TransactionAmountMin == 0 && c.TransactionAmountMax == 0 {
		c.TransactionAmountMin, c.TransactionAmountMax = d.TransactionAmountMin, d.TransactionAmountMax
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c Config) Validate() error {
	if c.BurstMin < 1 || c.BurstMin > c.BurstMax {
		return ErrInvalidBurst
	}
	if c.BurstDelayMin < 0 || c.BurstDelayMin > c.BurstDelayMax {
		return ErrInvalidDelay
	}
	if c.PaymentMin < 1 || c.PaymentMin > c.PaymentMax {
		return ErrInvalidPayment
	}
	if c.BalanceEventCap < 1 {
		return ErrInvalidCap
	}
	if c.TransactionCount < 1 || c.TransactionInterval <= 0 || c.TransactionAmountMin > c.TransactionAmountMax {
		return ErrInvalidTransactions
	}
	return nil
}
