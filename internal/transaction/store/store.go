package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Willizberc/Pexfin/internal/account"
	accountstore "github.com/Willizberc/Pexfin/internal/account/store"
	"github.com/Willizberc/Pexfin/internal/transaction"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// scanTransaction reads a transaction row.
// Expected column order: id, user_id, description, category, amount, date, idempotency_key, created_at
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var t transaction.Transaction

	var category string

	var key sql.NullString

	if err := s.Scan(
		&t.ID, &t.UserID, &t.Description, &category, &t.Amount, &t.Date, &key, &t.CreatedAt,
	); err != nil {
		return nil, err
	}

	t.Category = transaction.Category(category)
	t.IdempotencyKey = key.String

	return &t, nil
}

const selectTransactionColumns = `id, user_id, description, category, amount, date, idempotency_key, created_at`

func (s *Store) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &unitTx{tx: tx}, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`

	t, err := scanTransaction(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return t, nil
}

func (s *Store) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions WHERE user_id = $1 AND idempotency_key = $2`

	t, err := scanTransaction(s.db.QueryRowContext(ctx, query, userID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("finding transaction by idempotency key: %w", err)
	}

	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{filter.UserID}
	argIdx := 2

	if filter.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argIdx)

		args = append(args, string(*filter.Category))
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
	}

	return listTransactions(ctx, s.db, query, args...)
}

func listTransactions(ctx context.Context, q querier, query string, args ...any) ([]*transaction.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, t)
	}

	return txs, rows.Err()
}

// recordTable maps a category to its table and label column.
func recordTable(c transaction.Category) (table, label string) {
	if c == transaction.Expense {
		return "expenses", "category"
	}

	return "incomes", "source"
}

func (s *Store) ListRecords(ctx context.Context, filter transaction.RecordFilter) ([]*transaction.Record, error) {
	categories := []transaction.Category{transaction.Income, transaction.Expense}
	if filter.Category != nil {
		categories = []transaction.Category{*filter.Category}
	}

	var records []*transaction.Record

	for _, c := range categories {
		table, label := recordTable(c)

		query := fmt.Sprintf(`SELECT id, transaction_id, user_id, %s, description, amount, date FROM %s WHERE user_id = $1`, label, table)
		args := []any{filter.UserID}
		argIdx := 2

		if filter.StartDate != nil {
			query += fmt.Sprintf(" AND date >= $%d", argIdx)

			args = append(args, *filter.StartDate)
			argIdx++
		}

		if filter.EndDate != nil {
			query += fmt.Sprintf(" AND date <= $%d", argIdx)

			args = append(args, *filter.EndDate)
		}

		query += " ORDER BY date ASC"

		got, err := s.listRecords(ctx, c, query, args...)
		if err != nil {
			return nil, err
		}

		records = append(records, got...)
	}

	return records, nil
}

func (s *Store) listRecords(ctx context.Context, c transaction.Category, query string, args ...any) ([]*transaction.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", c, err)
	}
	defer rows.Close()

	var records []*transaction.Record

	for rows.Next() {
		r := transaction.Record{Category: c}
		if err := rows.Scan(&r.ID, &r.TransactionID, &r.UserID, &r.Label, &r.Description, &r.Amount, &r.Date); err != nil {
			return nil, fmt.Errorf("scanning %s record: %w", c, err)
		}

		records = append(records, &r)
	}

	return records, rows.Err()
}

func (s *Store) NetAmount(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN category = 'Income' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE user_id = $1
	`

	var net int64
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&net); err != nil {
		return 0, fmt.Errorf("summing transactions: %w", err)
	}

	return net, nil
}

type unitTx struct {
	tx *sql.Tx
}

func (u *unitTx) LockAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountstore.Columns + ` FROM accounts WHERE user_id = $1 FOR UPDATE`

	acc, err := accountstore.Scan(u.tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("locking account: %w", err)
	}

	return acc, nil
}

func (u *unitTx) CreateTransaction(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, description, category, amount, date, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NOW())
		RETURNING id, created_at
	`

	err := u.tx.QueryRowContext(ctx, query,
		t.UserID,
		t.Description,
		string(t.Category),
		t.Amount,
		t.Date,
		t.IdempotencyKey,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return transaction.ErrDuplicateKey
		}

		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (u *unitTx) CreateRecord(ctx context.Context, r *transaction.Record) error {
	table, label := recordTable(r.Category)
	query := fmt.Sprintf(`
		INSERT INTO %s (transaction_id, user_id, %s, description, amount, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, table, label)

	err := u.tx.QueryRowContext(ctx, query,
		r.TransactionID, r.UserID, r.Label, r.Description, r.Amount, r.Date,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("creating %s record: %w", r.Category, err)
	}

	return nil
}

func (u *unitTx) UpdateBalance(ctx context.Context, userID uuid.UUID, expectedVersion, balance int64) error {
	return accountstore.CompareAndSetBalance(ctx, u.tx, userID, expectedVersion, balance)
}

// FindDuplicates returns the user's transactions on the calendar days the
// entries span.
func (u *unitTx) FindDuplicates(ctx context.Context, userID uuid.UUID, entries []transaction.Entry) ([]*transaction.Transaction, error) {
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

	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3`

	start := minDate.UTC().Truncate(24 * time.Hour)
	end := maxDate.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	return listTransactions(ctx, u.tx, query, userID, start, end)
}

func (u *unitTx) Commit() error {
	return u.tx.Commit()
}

func (u *unitTx) Rollback() error {
	return u.tx.Rollback()
}
