package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/notification"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateNotification(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (user_id, title, body, read, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, n.UserID, n.Title, n.Body).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*notification.Notification, error) {
	query := `SELECT id, user_id, title, body, read, created_at FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += " AND NOT read"
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Notification

	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}

		out = append(out, &n)
	}

	return out, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}

	return n, nil
}

func (s *Store) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}

	if n == 0 {
		return notification.ErrNotFound
	}

	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}

	return int(n), nil
}
