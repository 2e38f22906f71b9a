// Package money converts between user-entered amounts and minor units.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmpty     = errors.New("amount is empty")
	ErrMalformed = errors.New("amount is not a number")
	ErrPrecision = errors.New("amount has more than two decimal places")
	ErrRange     = errors.New("amount is out of range")
)

var hundred = decimal.NewFromInt(100)

// Parse reads a decimal amount such as "12.50", "12,50" or "1 200" and
// returns it in cents. Signs are kept; callers decide whether they are valid.
func Parse(s string) (int64, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return 0, ErrEmpty
	}

	clean = strings.ReplaceAll(clean, " ", "")
	clean = strings.ReplaceAll(clean, "_", "")

	if strings.Contains(clean, ",") {
		// "1.234,56" is a decimal-comma amount; a lone comma is the separator.
		if strings.Contains(clean, ".") {
			clean = strings.ReplaceAll(clean, ".", "")
		}

		clean = strings.ReplaceAll(clean, ",", ".")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("%w: %q", ErrPrecision, s)
	}

	cents := d.Mul(hundred).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q", ErrRange, s)
	}

	return cents.IntPart(), nil
}

// Add returns a+b, or ErrRange when the sum does not fit in int64.
func Add(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrRange
	}

	return sum, nil
}

// Format renders cents with two decimals, e.g. -1050 -> "-10.50".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Signed renders an amount with an explicit sign for display.
func Signed(cents int64, positive bool) string {
	if positive {
		return "+" + Format(cents)
	}

	return "-" + Format(cents)
}
