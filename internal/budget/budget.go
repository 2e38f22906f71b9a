package budget

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/transaction"
)

var (
	ErrNotFound     = errors.New("budget not found")
	ErrGoalNotFound = errors.New("goal not found")
)

// Budget caps spending over a date range. Spent is derived from expense
// records when budgets are read; it is never stored.
type Budget struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Name         string
	TargetAmount int64
	StartDate    time.Time
	EndDate      time.Time
	// Categories restricts which expense labels count. Empty means all.
	Categories []string
	Spent      int64
	CreatedAt  time.Time
}

// Covers reports whether an expense record counts towards the budget.
func (b *Budget) Covers(r *transaction.Record) bool {
	if r.Category != transaction.Expense {
		return false
	}

	if r.Date.Before(b.StartDate) || r.Date.After(b.EndDate) {
		return false
	}

	if len(b.Categories) == 0 {
		return true
	}

	for _, c := range b.Categories {
		if strings.EqualFold(c, r.Label) {
			return true
		}
	}

	return false
}

// Remaining is negative once the budget is exceeded.
func (b *Budget) Remaining() int64 {
	return b.TargetAmount - b.Spent
}

type Goal struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Name         string
	TargetAmount int64
	StartDate    time.Time
	EndDate      time.Time
	Progress     int64
	CreatedAt    time.Time
}

func (g *Goal) Reached() bool {
	return g.Progress >= g.TargetAmount
}
