package main

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var errAmountPrecision = errors.New("amount has more than two decimal places")

// parseAmount converts a dollar amount such as "12.50" to cents.
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: %w", s, errAmountPrecision)
	}
	return cents.IntPart(), nil
}

// formatAmount renders cents as a signed dollar amount.
func formatAmount(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}
