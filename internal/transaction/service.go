package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/metrics"
	"github.com/Willizberc/Pexfin/internal/money"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	Begin(ctx context.Context) (Tx, error)

	GetTransaction(ctx context.Context, userID, id uuid.UUID) (*Transaction, error)
	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]*Record, error)
	// NetAmount is the signed sum of every transaction of the user.
	NetAmount(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Tx is one atomic unit of work. Nothing is visible until Commit.
type Tx interface {
	// LockAccount loads the account and holds it until the unit ends.
	LockAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error)
	CreateTransaction(ctx context.Context, t *Transaction) error
	CreateRecord(ctx context.Context, r *Record) error
	// UpdateBalance fails with account.ErrVersionConflict when the account
	// version no longer equals expectedVersion.
	UpdateBalance(ctx context.Context, userID uuid.UUID, expectedVersion, balance int64) error
	FindDuplicates(ctx context.Context, userID uuid.UUID, entries []Entry) ([]*Transaction, error)
	Commit() error
	Rollback() error
}

// Observer is told about every committed transaction.
type Observer interface {
	Recorded(ctx context.Context, r *Receipt)
}

const defaultAttempts = 3

type Service struct {
	repo      Repository
	pub       live.Publisher
	observers []Observer
	log       zerolog.Logger
	now       func() time.Time
	attempts  int
}

type Option func(*Service)

func WithPublisher(p live.Publisher) Option {
	return func(s *Service) { s.pub = p }
}

func WithObservers(o ...Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o...) }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxAttempts bounds how often a unit is retried on a version conflict.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		log:      zerolog.Nop(),
		now:      time.Now,
		attempts: defaultAttempts,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AddObserver registers o after construction, for observers that depend on
// the service themselves.
func (s *Service) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

type ListFilter struct {
	UserID    uuid.UUID
	Category  *Category
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

type RecordFilter struct {
	UserID    uuid.UUID
	Category  *Category
	StartDate *time.Time
	EndDate   *time.Time
}

// Record validates in, then writes the transaction, its category record and
// the balance adjustment as one unit. The unit is retried when the account
// changed concurrently.
func (s *Service) Record(ctx context.Context, userID uuid.UUID, in Input) (*Receipt, error) {
	d, err := in.validate()
	if err != nil {
		return nil, err
	}

	if d.key != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, userID, d.key)

		switch {
		case err == nil:
			return replay(existing, d)
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("looking up idempotency key: %w", err)
		}
	}

	var receipt *Receipt

	err = s.retry(ctx, func() error {
		var err error
		receipt, err = s.record(ctx, userID, d)

		return err
	})
	if errors.Is(err, ErrDuplicateKey) {
		// A concurrent request with the same key won the insert.
		existing, ferr := s.repo.FindByIdempotencyKey(ctx, userID, d.key)
		if ferr != nil {
			return nil, fmt.Errorf("looking up idempotency key: %w", ferr)
		}

		return replay(existing, d)
	}

	if err != nil {
		return nil, err
	}

	s.committed(ctx, receipt)

	return receipt, nil
}

// replay answers a repeated key with the transaction it first created. A key
// sent again with a different transaction is refused.
func replay(existing *Transaction, d draft) (*Receipt, error) {
	if existing.Description != d.description || existing.Amount != d.amount || existing.Category != d.category {
		return nil, ErrKeyReused
	}

	return &Receipt{Transaction: existing, Replayed: true}, nil
}

func (s *Service) record(ctx context.Context, userID uuid.UUID, d draft) (*Receipt, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	acc, err := tx.LockAccount(ctx, userID)
	if err != nil {
		return nil, lockError(err)
	}

	t := &Transaction{
		UserID:         userID,
		Description:    d.description,
		Category:       d.category,
		Amount:         d.amount,
		Date:           s.now(),
		IdempotencyKey: d.key,
	}
	if err := tx.CreateTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	rec := newRecord(t)
	if err := tx.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("create %s record: %w", t.Category, err)
	}

	balance, err := money.Add(acc.Balance, t.Signed())
	if err != nil {
		return nil, ErrBalanceRange
	}

	if err := tx.UpdateBalance(ctx, userID, acc.Version, balance); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record: %w", err)
	}

	return &Receipt{Transaction: t, Record: rec, Balance: balance}, nil
}

// retry runs fn until it succeeds, fails with something other than a version
// conflict, or the attempts run out.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	var err error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = fn()
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}

		metrics.VersionConflict()
		s.log.Debug().Int("attempt", attempt).Msg("balance version conflict, retrying")

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return err
}

func lockError(err error) error {
	if errors.Is(err, account.ErrNotFound) {
		return ErrAccountNotFound
	}

	return fmt.Errorf("lock account: %w", err)
}

func (s *Service) committed(ctx context.Context, r *Receipt) {
	t := r.Transaction

	metrics.TransactionRecorded(string(t.Category))
	s.log.Info().
		Str("user_id", t.UserID.String()).
		Str("transaction_id", t.ID.String()).
		Str("category", string(t.Category)).
		Int64("amount", t.Amount).
		Msg("transaction recorded")

	if s.pub != nil {
		s.pub.Publish(live.Event{
			Topic: live.Topic{UserID: t.UserID, Collection: live.Transactions},
			Kind:  live.KindCreated,
			ID:    t.ID.String(),
		})

		if r.Record != nil {
			s.pub.Publish(live.Event{
				Topic: live.Topic{UserID: t.UserID, Collection: t.Category.Collection()},
				Kind:  live.KindCreated,
				ID:    r.Record.ID.String(),
			})
		}

		s.pub.Publish(live.Event{
			Topic: live.Topic{UserID: t.UserID, Collection: live.Accounts},
			Kind:  live.KindUpdated,
			ID:    t.UserID.String(),
		})
	}

	for _, o := range s.observers {
		o.Recorded(ctx, r)
	}
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) ListRecords(ctx context.Context, filter RecordFilter) ([]*Record, error) {
	return s.repo.ListRecords(ctx, filter)
}

type ImportResult struct {
	Imported   []*Transaction
	Duplicates []Entry
	Balance    int64
}

// ImportBatch records statement entries in one unit, skipping entries that
// match an existing transaction on date, amount, category and description.
func (s *Service) ImportBatch(ctx context.Context, userID uuid.UUID, entries []Entry) (*ImportResult, error) {
	if len(entries) == 0 {
		return &ImportResult{}, nil
	}

	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	var (
		result  *ImportResult
		records []*Record
	)

	err := s.retry(ctx, func() error {
		var err error
		result, records, err = s.importBatch(ctx, userID, entries)

		return err
	})
	if err != nil {
		return nil, err
	}

	for i, t := range result.Imported {
		s.committed(ctx, &Receipt{Transaction: t, Record: records[i], Balance: result.Balance})
	}

	return result, nil
}

type dupKey struct {
	Date        string
	Amount      int64
	Category    Category
	Description string
}

// entryKey compares calendar days in UTC, where statement dates live. The
// store may hand stored dates back in another zone.
func entryKey(date time.Time, amount int64, c Category, description string) dupKey {
	return dupKey{
		Date:        date.UTC().Format(time.DateOnly),
		Amount:      amount,
		Category:    c,
		Description: description,
	}
}

func (s *Service) importBatch(ctx context.Context, userID uuid.UUID, entries []Entry) (*ImportResult, []*Record, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	acc, err := tx.LockAccount(ctx, userID)
	if err != nil {
		return nil, nil, lockError(err)
	}

	existing, err := tx.FindDuplicates(ctx, userID, entries)
	if err != nil {
		return nil, nil, fmt.Errorf("find duplicates: %w", err)
	}

	seen := make(map[dupKey]struct{}, len(existing))
	for _, t := range existing {
		seen[entryKey(t.Date, t.Amount, t.Category, t.Description)] = struct{}{}
	}

	result := &ImportResult{Balance: acc.Balance}

	var records []*Record

	for _, e := range entries {
		if _, dup := seen[entryKey(e.Date, e.Amount, e.Category, e.Description)]; dup {
			result.Duplicates = append(result.Duplicates, e)
			continue
		}

		t := &Transaction{
			UserID:      userID,
			Description: e.Description,
			Category:    e.Category,
			Amount:      e.Amount,
			Date:        e.Date,
		}
		if err := tx.CreateTransaction(ctx, t); err != nil {
			return nil, nil, fmt.Errorf("create transaction: %w", err)
		}

		rec := newRecord(t)
		if err := tx.CreateRecord(ctx, rec); err != nil {
			return nil, nil, fmt.Errorf("create %s record: %w", t.Category, err)
		}

		if result.Balance, err = money.Add(result.Balance, t.Signed()); err != nil {
			return nil, nil, ErrBalanceRange
		}

		result.Imported = append(result.Imported, t)
		records = append(records, rec)
	}

	if len(result.Imported) == 0 {
		return result, nil, nil
	}

	if err := tx.UpdateBalance(ctx, userID, acc.Version, result.Balance); err != nil {
		return nil, nil, fmt.Errorf("update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit import: %w", err)
	}

	return result, records, nil
}
