package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/budget"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Categories travel as JSON so the TEXT[] column needs no driver-specific array type.
func encodeCategories(c []string) (string, error) {
	if c == nil {
		c = []string{}
	}

	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (s *Store) CreateBudget(ctx context.Context, b *budget.Budget) error {
	categories, err := encodeCategories(b.Categories)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}

	query := `
		INSERT INTO budgets (user_id, name, target_amount, start_date, end_date, categories, created_at)
		VALUES ($1, $2, $3, $4, $5, ARRAY(SELECT jsonb_array_elements_text($6::jsonb)), NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		b.UserID, b.Name, b.TargetAmount, b.StartDate, b.EndDate, categories,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating budget: %w", err)
	}

	return nil
}

func (s *Store) ListBudgets(ctx context.Context, userID uuid.UUID) ([]*budget.Budget, error) {
	query := `
		SELECT id, user_id, name, target_amount, start_date, end_date, array_to_json(categories), created_at
		FROM budgets
		WHERE user_id = $1
		ORDER BY start_date ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}
	defer rows.Close()

	var out []*budget.Budget

	for rows.Next() {
		var b budget.Budget

		var categories sql.NullString

		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.TargetAmount, &b.StartDate, &b.EndDate, &categories, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning budget: %w", err)
		}

		if categories.Valid {
			if err := json.Unmarshal([]byte(categories.String), &b.Categories); err != nil {
				return nil, fmt.Errorf("decoding budget categories: %w", err)
			}
		}

		out = append(out, &b)
	}

	return out, rows.Err()
}

func (s *Store) DeleteBudget(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting budget: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting budget: %w", err)
	}

	if n == 0 {
		return budget.ErrNotFound
	}

	return nil
}

const goalColumns = `id, user_id, name, target_amount, start_date, end_date, progress, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(s scanner) (*budget.Goal, error) {
	var g budget.Goal
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.StartDate, &g.EndDate, &g.Progress, &g.CreatedAt); err != nil {
		return nil, err
	}

	return &g, nil
}

func (s *Store) CreateGoal(ctx context.Context, g *budget.Goal) error {
	query := `
		INSERT INTO goals (user_id, name, target_amount, start_date, end_date, progress, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, g.UserID, g.Name, g.TargetAmount, g.StartDate, g.EndDate).Scan(&g.ID, &g.CreatedAt); err != nil {
		return fmt.Errorf("creating goal: %w", err)
	}

	return nil
}

func (s *Store) ListGoals(ctx context.Context, userID uuid.UUID) ([]*budget.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = $1 ORDER BY end_date ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	defer rows.Close()

	var out []*budget.Goal

	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}

		out = append(out, g)
	}

	return out, rows.Err()
}

func (s *Store) AddGoalProgress(ctx context.Context, userID, id uuid.UUID, amount int64) (*budget.Goal, error) {
	query := `
		UPDATE goals SET progress = progress + $3
		WHERE id = $1 AND user_id = $2
		RETURNING ` + goalColumns

	g, err := scanGoal(s.db.QueryRowContext(ctx, query, id, userID, amount))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, budget.ErrGoalNotFound
		}

		return nil, fmt.Errorf("adding goal progress: %w", err)
	}

	return g, nil
}
