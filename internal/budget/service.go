package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/money"
	"github.com/Willizberc/Pexfin/internal/transaction"
	"github.com/Willizberc/Pexfin/internal/validation"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=budget
type Repository interface {
	CreateBudget(ctx context.Context, b *Budget) error
	ListBudgets(ctx context.Context, userID uuid.UUID) ([]*Budget, error)
	DeleteBudget(ctx context.Context, userID, id uuid.UUID) error

	CreateGoal(ctx context.Context, g *Goal) error
	ListGoals(ctx context.Context, userID uuid.UUID) ([]*Goal, error)
	AddGoalProgress(ctx context.Context, userID, id uuid.UUID, amount int64) (*Goal, error)
}

// Records is the read side of the ledger, satisfied by *transaction.Service.
type Records interface {
	ListRecords(ctx context.Context, filter transaction.RecordFilter) ([]*transaction.Record, error)
}

type Service struct {
	repo    Repository
	records Records
	pub     live.Publisher
}

func NewService(repo Repository, records Records, pub live.Publisher) *Service {
	return &Service{repo: repo, records: records, pub: pub}
}

type CreateParams struct {
	Name       string
	Target     string
	StartDate  time.Time
	EndDate    time.Time
	Categories []string
}

func (p CreateParams) validate() (int64, error) {
	var problems validation.Problems

	problems.Require("name", p.Name)

	var target int64

	if problems.Require("target_amount", p.Target) {
		cents, err := money.Parse(p.Target)

		switch {
		case err != nil:
			problems.Add("target_amount", "must be a number with at most two decimals")
		case cents <= 0:
			problems.Add("target_amount", "must be greater than zero")
		}

		target = cents
	}

	switch {
	case p.StartDate.IsZero():
		problems.Add("start_date", "is required")
	case p.EndDate.IsZero():
		problems.Add("end_date", "is required")
	case p.EndDate.Before(p.StartDate):
		problems.Add("end_date", "must not be before start_date")
	}

	return target, problems.Err()
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Budget, error) {
	target, err := params.validate()
	if err != nil {
		return nil, err
	}

	b := &Budget{
		UserID:       userID,
		Name:         strings.TrimSpace(params.Name),
		TargetAmount: target,
		StartDate:    params.StartDate,
		EndDate:      params.EndDate,
		Categories:   cleanCategories(params.Categories),
	}
	if err := s.repo.CreateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("creating budget: %w", err)
	}

	s.publish(userID, live.Budgets, live.KindCreated, b.ID)

	return b, nil
}

func cleanCategories(in []string) []string {
	out := make([]string, 0, len(in))

	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}

	return out
}

// List returns the user's budgets with Spent filled from expense records.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Budget, error) {
	budgets, err := s.repo.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}

	if err := s.fillSpent(ctx, userID, budgets); err != nil {
		return nil, err
	}

	return budgets, nil
}

func (s *Service) fillSpent(ctx context.Context, userID uuid.UUID, budgets []*Budget) error {
	if len(budgets) == 0 {
		return nil
	}

	start, end := budgets[0].StartDate, budgets[0].EndDate
	for _, b := range budgets[1:] {
		if b.StartDate.Before(start) {
			start = b.StartDate
		}

		if b.EndDate.After(end) {
			end = b.EndDate
		}
	}

	expense := transaction.Expense

	records, err := s.records.ListRecords(ctx, transaction.RecordFilter{
		UserID:    userID,
		Category:  &expense,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return fmt.Errorf("listing expense records: %w", err)
	}

	for _, b := range budgets {
		b.Spent = 0

		for _, r := range records {
			if b.Covers(r) {
				b.Spent += r.Amount
			}
		}
	}

	return nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.DeleteBudget(ctx, userID, id); err != nil {
		return err
	}

	s.publish(userID, live.Budgets, live.KindDeleted, id)

	return nil
}

type GoalParams struct {
	Name      string
	Target    string
	StartDate time.Time
	EndDate   time.Time
}

func (s *Service) CreateGoal(ctx context.Context, userID uuid.UUID, params GoalParams) (*Goal, error) {
	target, err := CreateParams{
		Name:      params.Name,
		Target:    params.Target,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	}.validate()
	if err != nil {
		return nil, err
	}

	g := &Goal{
		UserID:       userID,
		Name:         strings.TrimSpace(params.Name),
		TargetAmount: target,
		StartDate:    params.StartDate,
		EndDate:      params.EndDate,
	}
	if err := s.repo.CreateGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("creating goal: %w", err)
	}

	s.publish(userID, live.Goals, live.KindCreated, g.ID)

	return g, nil
}

func (s *Service) ListGoals(ctx context.Context, userID uuid.UUID) ([]*Goal, error) {
	return s.repo.ListGoals(ctx, userID)
}

// AddProgress adds a positive amount saved towards the goal.
func (s *Service) AddProgress(ctx context.Context, userID, id uuid.UUID, amount string) (*Goal, error) {
	var p validation.Problems

	var cents int64

	if p.Require("amount", amount) {
		v, err := money.Parse(amount)
		if err != nil || v <= 0 {
			p.Add("amount", "must be a positive number with at most two decimals")
		}

		cents = v
	}

	if err := p.Err(); err != nil {
		return nil, err
	}

	g, err := s.repo.AddGoalProgress(ctx, userID, id, cents)
	if err != nil {
		return nil, err
	}

	s.publish(userID, live.Goals, live.KindUpdated, id)

	return g, nil
}

func (s *Service) publish(userID uuid.UUID, c live.Collection, kind live.Kind, id uuid.UUID) {
	if s.pub == nil {
		return
	}

	s.pub.Publish(live.Event{
		Topic: live.Topic{UserID: userID, Collection: c},
		Kind:  kind,
		ID:    id.String(),
	})
}
