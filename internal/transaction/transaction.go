package transaction

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/live"
)

// Category is the direction of a transaction.
type Category string

const (
	Income  Category = "Income"
	Expense Category = "Expense"
)

// ParseCategory accepts "income"/"expense" in any case.
func ParseCategory(s string) (Category, bool) {
	switch {
	case strings.EqualFold(strings.TrimSpace(s), string(Income)):
		return Income, true
	case strings.EqualFold(strings.TrimSpace(s), string(Expense)):
		return Expense, true
	default:
		return "", false
	}
}

// Sign is +1 for income and -1 for expenses.
func (c Category) Sign() int64 {
	if c == Expense {
		return -1
	}

	return 1
}

// Collection is the live collection holding this category's records.
func (c Category) Collection() live.Collection {
	if c == Expense {
		return live.Expenses
	}

	return live.Income
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Description    string
	Category       Category
	Amount         int64 // Amount in cents, always positive
	Date           time.Time
	IdempotencyKey string
	CreatedAt      time.Time
}

// Signed returns the effect of the transaction on the balance.
func (t *Transaction) Signed() int64 {
	return t.Category.Sign() * t.Amount
}

// Record is the per-category copy of a transaction (an income or an
// expense). Label is the income source or the expense category.
type Record struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	UserID        uuid.UUID
	Category      Category
	Label         string
	Description   string
	Amount        int64
	Date          time.Time
}

func newRecord(t *Transaction) *Record {
	return &Record{
		TransactionID: t.ID,
		UserID:        t.UserID,
		Category:      t.Category,
		Label:         t.Description,
		Description:   t.Description,
		Amount:        t.Amount,
		Date:          t.Date,
	}
}

// Receipt describes a recorded transaction. Balance is the account balance
// after commit; a replayed receipt carries only the original transaction.
type Receipt struct {
	Transaction *Transaction
	Record      *Record
	Balance     int64
	Replayed    bool
}

// Entry is a transaction parsed from a bank statement.
type Entry struct {
	Date        time.Time
	Description string
	Category    Category
	Amount      int64
}
