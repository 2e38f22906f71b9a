package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/money"
	"github.com/Willizberc/Pexfin/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=report
type Ledger interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
	ListRecords(ctx context.Context, filter transaction.RecordFilter) ([]*transaction.Record, error)
}

type Accounts interface {
	Get(ctx context.Context, userID uuid.UUID) (*account.Account, error)
}

type Profiles interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

const recentLimit = 5

type Service struct {
	ledger   Ledger
	accounts Accounts
	profiles Profiles
	loc      *time.Location
}

func NewService(ledger Ledger, accounts Accounts, profiles Profiles, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}

	return &Service{ledger: ledger, accounts: accounts, profiles: profiles, loc: loc}
}

// Location is the zone months are cut in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Home is the home screen: greeting, cached balance, lifetime totals and the
// latest transactions.
type Home struct {
	DisplayName string
	Currency    string
	Balance     int64
	Totals      Totals
	Recent      []*transaction.Transaction
}

func (s *Service) Home(ctx context.Context, userID uuid.UUID) (*Home, error) {
	name, err := s.profiles.DisplayName(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	acc, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}

	txs, err := s.ledger.List(ctx, transaction.ListFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	recent := txs
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	return &Home{
		DisplayName: name,
		Currency:    acc.Currency,
		Balance:     acc.Balance,
		Totals:      Summarize(txs),
		Recent:      recent,
	}, nil
}

func (s *Service) Month(ctx context.Context, userID uuid.UUID, category transaction.Category, month time.Time) (*MonthlyReport, error) {
	start, end := MonthBounds(month, s.loc)
	last := end.Add(-time.Nanosecond)

	records, err := s.ledger.ListRecords(ctx, transaction.RecordFilter{
		UserID:    userID,
		Category:  &category,
		StartDate: &start,
		EndDate:   &last,
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", category, err)
	}

	r := Monthly(records, category, month, s.loc)

	return &r, nil
}

// Statement renders the month's transactions as plain text, one line each.
func (s *Service) Statement(ctx context.Context, userID uuid.UUID, month time.Time) (string, error) {
	acc, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading account: %w", err)
	}

	start, end := MonthBounds(month, s.loc)
	last := end.Add(-time.Nanosecond)

	txs, err := s.ledger.List(ctx, transaction.ListFilter{UserID: userID, StartDate: &start, EndDate: &last})
	if err != nil {
		return "", fmt.Errorf("listing transactions: %w", err)
	}

	return FormatStatement(start, acc, txs), nil
}

// FormatStatement lists txs oldest first, followed by the month's totals and
// the current balance.
func FormatStatement(month time.Time, acc *account.Account, txs []*transaction.Transaction) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Statement %s", month.Format("2006-01"))

	if acc.Name != "" {
		fmt.Fprintf(&sb, " | %s", acc.Name)
	}

	if acc.Currency != "" {
		fmt.Fprintf(&sb, " (%s)", acc.Currency)
	}

	sb.WriteString("\n")

	if len(txs) == 0 {
		sb.WriteString("No transactions.\n")
	}

	for i := len(txs) - 1; i >= 0; i-- {
		t := txs[i]
		fmt.Fprintf(&sb, "* %s | %s | %s | %s\n",
			t.Date.In(month.Location()).Format(time.DateOnly),
			t.Description,
			t.Category,
			money.Signed(t.Amount, t.Category == transaction.Income),
		)
	}

	totals := Summarize(txs)
	fmt.Fprintf(&sb, "Income: %s | Expenses: %s | Net: %s\n",
		money.Format(totals.Income), money.Format(totals.Expense), money.Format(totals.Net))
	fmt.Fprintf(&sb, "Balance: %s\n", money.Format(acc.Balance))

	return sb.String()
}
