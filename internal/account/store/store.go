package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/account"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// Columns shared by every query returning an account. Scan order must match Scan.
const Columns = `user_id, name, type, currency, balance, opening_balance, version, created_at, updated_at`

// Scan reads one account row selected with Columns.
func Scan(s scanner) (*account.Account, error) {
	var acc account.Account

	var name, typ, currency sql.NullString

	if err := s.Scan(
		&acc.UserID, &name, &typ, &currency,
		&acc.Balance, &acc.OpeningBalance, &acc.Version,
		&acc.CreatedAt, &acc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	acc.Name = name.String
	acc.Type = typ.String
	acc.Currency = currency.String

	return &acc, nil
}

func (s *Store) GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + Columns + ` FROM accounts WHERE user_id = $1`

	acc, err := Scan(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return acc, nil
}

func (s *Store) UpdateDetails(ctx context.Context, userID uuid.UUID, d account.Details) (*account.Account, error) {
	query := `
		UPDATE accounts
		SET name = $2, type = $3, currency = $4,
			balance = balance + ($5 - opening_balance),
			opening_balance = $5,
			version = version + 1,
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + Columns

	acc, err := Scan(s.db.QueryRowContext(ctx, query, userID, d.Name, d.Type, d.Currency, d.OpeningBalance))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("updating account details: %w", err)
	}

	return acc, nil
}

func (s *Store) CompareAndSetBalance(ctx context.Context, userID uuid.UUID, expectedVersion, balance int64) error {
	return CompareAndSetBalance(ctx, s.db, userID, expectedVersion, balance)
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CompareAndSetBalance writes balance only if the stored version still equals
// expectedVersion, bumping the version. Zero affected rows is a conflict.
func CompareAndSetBalance(ctx context.Context, db Execer, userID uuid.UUID, expectedVersion, balance int64) error {
	query := `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE user_id = $2 AND version = $3
	`

	res, err := db.ExecContext(ctx, query, balance, userID, expectedVersion)
	if err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}

	if n == 0 {
		return account.ErrVersionConflict
	}

	return nil
}

func (s *Store) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning account id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}
