// Package inmemory is a process-local ledger implementing both the
// transaction and account repositories. Units of work hold no lock while
// staging; the account version is checked again when they commit.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/transaction"
)

var errTxDone = errors.New("unit of work already finished")

type Store struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]account.Account
	transactions []*transaction.Transaction
	records      []*transaction.Record
	now          func() time.Time
}

func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]account.Account),
		now:      time.Now,
	}
}

// PutAccount creates or replaces an account.
func (s *Store) PutAccount(acc account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[acc.UserID] = acc
}

func (s *Store) GetAccount(_ context.Context, userID uuid.UUID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return nil, account.ErrNotFound
	}

	return &acc, nil
}

func (s *Store) UpdateDetails(_ context.Context, userID uuid.UUID, d account.Details) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return nil, account.ErrNotFound
	}

	acc.Name = d.Name
	acc.Type = d.Type
	acc.Currency = d.Currency
	acc.Balance += d.OpeningBalance - acc.OpeningBalance
	acc.OpeningBalance = d.OpeningBalance
	acc.Version++
	acc.UpdatedAt = s.now()
	s.accounts[userID] = acc

	return &acc, nil
}

func (s *Store) CompareAndSetBalance(_ context.Context, userID uuid.UUID, expectedVersion, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setBalance(userID, expectedVersion, balance)
}

// setBalance must be called with mu held.
func (s *Store) setBalance(userID uuid.UUID, expectedVersion, balance int64) error {
	acc, ok := s.accounts[userID]
	if !ok {
		return account.ErrNotFound
	}

	if acc.Version != expectedVersion {
		return account.ErrVersionConflict
	}

	acc.Balance = balance
	acc.Version++
	acc.UpdatedAt = s.now()
	s.accounts[userID] = acc

	return nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })

	return ids, nil
}

func (s *Store) Begin(_ context.Context) (transaction.Tx, error) {
	return &Tx{store: s}, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id uuid.UUID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.transactions {
		if t.ID == id && t.UserID == userID {
			cp := *t
			return &cp, nil
		}
	}

	return nil, transaction.ErrNotFound
}

func (s *Store) FindByIdempotencyKey(_ context.Context, userID uuid.UUID, key string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t := s.byKey(userID, key); t != nil {
		cp := *t
		return &cp, nil
	}

	return nil, transaction.ErrNotFound
}

func (s *Store) byKey(userID uuid.UUID, key string) *transaction.Transaction {
	if key == "" {
		return nil
	}

	for _, t := range s.transactions {
		if t.UserID == userID && t.IdempotencyKey == key {
			return t
		}
	}

	return nil
}

func inRange(date time.Time, start, end *time.Time) bool {
	if start != nil && date.Before(*start) {
		return false
	}

	if end != nil && date.After(*end) {
		return false
	}

	return true
}

func (s *Store) ListTransactions(_ context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*transaction.Transaction

	for _, t := range s.transactions {
		if t.UserID != filter.UserID || !inRange(t.Date, filter.StartDate, filter.EndDate) {
			continue
		}

		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}

		cp := *t
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}

func (s *Store) ListRecords(_ context.Context, filter transaction.RecordFilter) ([]*transaction.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*transaction.Record

	for _, r := range s.records {
		if r.UserID != filter.UserID || !inRange(r.Date, filter.StartDate, filter.EndDate) {
			continue
		}

		if filter.Category != nil && r.Category != *filter.Category {
			continue
		}

		cp := *r
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return out, nil
}

func (s *Store) NetAmount(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var net int64

	for _, t := range s.transactions {
		if t.UserID == userID {
			net += t.Signed()
		}
	}

	return net, nil
}

// Tx stages writes and applies them atomically on Commit.
type Tx struct {
	store        *Store
	transactions []*transaction.Transaction
	records      []*transaction.Record
	balance      *pendingBalance
	done         bool
}

type pendingBalance struct {
	userID          uuid.UUID
	expectedVersion int64
	balance         int64
}

func (tx *Tx) LockAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	if tx.done {
		return nil, errTxDone
	}

	return tx.store.GetAccount(ctx, userID)
}

func (tx *Tx) CreateTransaction(_ context.Context, t *transaction.Transaction) error {
	if tx.done {
		return errTxDone
	}

	t.ID = uuid.New()
	t.CreatedAt = tx.store.now()
	tx.transactions = append(tx.transactions, t)

	return nil
}

func (tx *Tx) CreateRecord(_ context.Context, r *transaction.Record) error {
	if tx.done {
		return errTxDone
	}

	r.ID = uuid.New()
	tx.records = append(tx.records, r)

	return nil
}

func (tx *Tx) UpdateBalance(_ context.Context, userID uuid.UUID, expectedVersion, balance int64) error {
	if tx.done {
		return errTxDone
	}

	tx.store.mu.RLock()
	acc, ok := tx.store.accounts[userID]
	tx.store.mu.RUnlock()

	if !ok {
		return account.ErrNotFound
	}

	if acc.Version != expectedVersion {
		return account.ErrVersionConflict
	}

	tx.balance = &pendingBalance{userID: userID, expectedVersion: expectedVersion, balance: balance}

	return nil
}

func (tx *Tx) FindDuplicates(_ context.Context, userID uuid.UUID, entries []transaction.Entry) ([]*transaction.Transaction, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	minDate, maxDate := entries[0].Date, entries[0].Date
	for _, e := range entries[1:] {
		if e.Date.Before(minDate) {
			minDate = e.Date
		}

		if e.Date.After(maxDate) {
			maxDate = e.Date
		}
	}

	start := minDate.UTC().Truncate(24 * time.Hour)
	end := maxDate.UTC().Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	var out []*transaction.Transaction

	for _, t := range tx.store.transactions {
		if t.UserID == userID && inRange(t.Date, &start, &end) {
			cp := *t
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (tx *Tx) Commit() error {
	if tx.done {
		return errTxDone
	}

	tx.done = true

	s := tx.store

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tx.transactions {
		if s.byKey(t.UserID, t.IdempotencyKey) != nil {
			return transaction.ErrDuplicateKey
		}
	}

	if b := tx.balance; b != nil {
		if err := s.setBalance(b.userID, b.expectedVersion, b.balance); err != nil {
			return err
		}
	}

	for _, t := range tx.transactions {
		cp := *t
		s.transactions = append(s.transactions, &cp)
	}

	for _, r := range tx.records {
		cp := *r
		s.records = append(s.records, &cp)
	}

	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (tx *Tx) Rollback() error {
	tx.done = true
	tx.transactions = nil
	tx.records = nil
	tx.balance = nil

	return nil
}
