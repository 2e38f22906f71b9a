// Package reconcile recomputes cached account balances from the ledger and
// corrects any drift.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/metrics"
)

const defaultAttempts = 3

//go:generate mockgen -source=reconcile.go -destination=ledger_mock.go -package=reconcile
type Ledger interface {
	NetAmount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Result struct {
	UserID   uuid.UUID
	Cached   int64
	Expected int64
	// Corrected is set when the cached balance was rewritten.
	Corrected bool
}

func (r *Result) Drift() int64 {
	return r.Cached - r.Expected
}

type Service struct {
	accounts account.Repository
	ledger   Ledger
	pub      live.Publisher
	log      zerolog.Logger
	attempts int
}

func NewService(accounts account.Repository, ledger Ledger, pub live.Publisher, log zerolog.Logger) *Service {
	return &Service{
		accounts: accounts,
		ledger:   ledger,
		pub:      pub,
		log:      log,
		attempts: defaultAttempts,
	}
}

// ReconcileUser sets the cached balance to the opening balance plus the
// signed sum of the user's transactions. The account is read before the
// ledger so a concurrent recording always bumps the version it is compared
// against.
func (s *Service) ReconcileUser(ctx context.Context, userID uuid.UUID) (*Result, error) {
	for attempt := 1; ; attempt++ {
		res, err := s.reconcileOnce(ctx, userID)
		if errors.Is(err, account.ErrVersionConflict) && attempt < s.attempts {
			metrics.VersionConflict()
			continue
		}

		if err != nil {
			metrics.ReconcileFailed()
			return nil, err
		}

		metrics.ReconcileChecked(res.Drift())

		if res.Corrected {
			s.log.Warn().
				Str("user_id", userID.String()).
				Int64("cached", res.Cached).
				Int64("expected", res.Expected).
				Msg("balance drift corrected")
		}

		return res, nil
	}
}

func (s *Service) reconcileOnce(ctx context.Context, userID uuid.UUID) (*Result, error) {
	acc, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	net, err := s.ledger.NetAmount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("summing transactions: %w", err)
	}

	res := &Result{UserID: userID, Cached: acc.Balance, Expected: acc.OpeningBalance + net}
	if res.Drift() == 0 {
		return res, nil
	}

	if err := s.accounts.CompareAndSetBalance(ctx, userID, acc.Version, res.Expected); err != nil {
		return nil, fmt.Errorf("correcting balance: %w", err)
	}

	res.Corrected = true

	if s.pub != nil {
		s.pub.Publish(live.Event{
			Topic: live.Topic{UserID: userID, Collection: live.Accounts},
			Kind:  live.KindUpdated,
			ID:    userID.String(),
		})
	}

	return res, nil
}

// Summary counts the outcome of a sweep.
type Summary struct {
	Checked   int
	Corrected int
	Failed    int
}

// ReconcileAll sweeps every account. A failing user is logged and skipped.
func (s *Service) ReconcileAll(ctx context.Context) (Summary, error) {
	var sum Summary

	ids, err := s.accounts.ListUserIDs(ctx)
	if err != nil {
		return sum, fmt.Errorf("listing accounts: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		res, err := s.ReconcileUser(ctx, id)
		if err != nil {
			sum.Failed++
			s.log.Error().Err(err).Str("user_id", id.String()).Msg("reconciliation failed")

			continue
		}

		sum.Checked++
		if res.Corrected {
			sum.Corrected++
		}
	}

	s.log.Info().
		Int("checked", sum.Checked).
		Int("corrected", sum.Corrected).
		Int("failed", sum.Failed).
		Msg("reconciliation sweep finished")

	return sum, nil
}
