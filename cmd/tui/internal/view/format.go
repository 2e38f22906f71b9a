package view

import (
	"context"
	"strings"
	"time"

	"github.com/Willizberc/Pexfin/internal/money"
	"github.com/Willizberc/Pexfin/internal/transaction"
)

const dbTimeout = 5 * time.Second

// FormatAmount formats an amount stored as cents into a human-readable string.
func FormatAmount(cents int64) string {
	return money.Format(cents)
}

// FormatSigned prefixes income with + and expenses with -.
func FormatSigned(tx *transaction.Transaction) string {
	return money.Signed(tx.Amount, tx.Category == transaction.Income)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return DbCtxWithTimeout(dbTimeout)
}

func DbCtxWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Bar renders value as a run of blocks scaled against peak, at most width long.
// Non-zero values always get at least one block.
func Bar(value, peak int64, width int) string {
	if value <= 0 || peak <= 0 || width <= 0 {
		return ""
	}

	n := int(value * int64(width) / peak)
	if n == 0 {
		n = 1
	}

	if n > width {
		n = width
	}

	return strings.Repeat("█", n)
}
