package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/money"
	"github.com/Willizberc/Pexfin/internal/validation"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=account
type Repository interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error)
	// UpdateDetails replaces the descriptive fields and shifts the balance by
	// the change in opening balance, in a single statement.
	UpdateDetails(ctx context.Context, userID uuid.UUID, d Details) (*Account, error)
	CompareAndSetBalance(ctx context.Context, userID uuid.UUID, expectedVersion, balance int64) error
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

type Service struct {
	repo Repository
	pub  live.Publisher
}

func NewService(repo Repository, pub live.Publisher) *Service {
	return &Service{repo: repo, pub: pub}
}

type SetupParams struct {
	Name           string
	Type           string
	Currency       string
	OpeningBalance string
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, userID)
}

// Setup fills in the account details entered after sign-up. The account
// must already exist.
func (s *Service) Setup(ctx context.Context, userID uuid.UUID, params SetupParams) (*Account, error) {
	var p validation.Problems

	p.Require("name", params.Name)
	p.Require("type", params.Type)
	p.Require("currency", params.Currency)

	var opening int64

	if p.Require("opening_balance", params.OpeningBalance) {
		cents, err := money.Parse(params.OpeningBalance)
		if err != nil {
			p.Add("opening_balance", "must be a number with at most two decimals")
		}

		opening = cents
	}

	if err := p.Err(); err != nil {
		return nil, err
	}

	acc, err := s.repo.UpdateDetails(ctx, userID, Details{
		Name:           strings.TrimSpace(params.Name),
		Type:           strings.TrimSpace(params.Type),
		Currency:       strings.ToUpper(strings.TrimSpace(params.Currency)),
		OpeningBalance: opening,
	})
	if err != nil {
		return nil, fmt.Errorf("updating account details: %w", err)
	}

	if s.pub != nil {
		s.pub.Publish(live.Event{
			Topic: live.Topic{UserID: userID, Collection: live.Accounts},
			Kind:  live.KindUpdated,
			ID:    userID.String(),
		})
	}

	return acc, nil
}
