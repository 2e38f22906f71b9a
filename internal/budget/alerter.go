package budget

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Willizberc/Pexfin/internal/money"
	"github.com/Willizberc/Pexfin/internal/notification"
	"github.com/Willizberc/Pexfin/internal/transaction"
)

//go:generate mockgen -source=alerter.go -destination=notifier_mock.go -package=budget

// Notifier is satisfied by *notification.Service.
type Notifier interface {
	Create(ctx context.Context, userID uuid.UUID, title, body string) (*notification.Notification, error)
}

// Alerter notifies the user when a recorded expense pushes a budget over its
// target. It alerts once, on the expense that crosses the line.
type Alerter struct {
	budgets  *Service
	notifier Notifier
	log      zerolog.Logger
}

func NewAlerter(budgets *Service, notifier Notifier, log zerolog.Logger) *Alerter {
	return &Alerter{budgets: budgets, notifier: notifier, log: log}
}

func (a *Alerter) Recorded(ctx context.Context, r *transaction.Receipt) {
	if r.Record == nil || r.Record.Category != transaction.Expense {
		return
	}

	userID := r.Transaction.UserID

	budgets, err := a.budgets.List(ctx, userID)
	if err != nil {
		a.log.Error().Err(err).Str("user_id", userID.String()).Msg("loading budgets for alert")
		return
	}

	for _, b := range budgets {
		if !b.Covers(r.Record) {
			continue
		}

		before := b.Spent - r.Record.Amount
		if before > b.TargetAmount || b.Spent <= b.TargetAmount {
			continue
		}

		body := fmt.Sprintf("%s: spent %s of %s", b.Name, money.Format(b.Spent), money.Format(b.TargetAmount))
		if _, err := a.notifier.Create(ctx, userID, "Budget exceeded", body); err != nil {
			a.log.Error().Err(err).Str("budget_id", b.ID.String()).Msg("creating budget alert")
		}
	}
}
