package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Willizberc/Pexfin/internal/identity"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, display_name, email, password_hash, profile_picture, created_at, last_login_at`

func scanUser(s scanner) (*identity.User, error) {
	var u identity.User

	var picture sql.NullString

	var lastLogin sql.NullTime

	if err := s.Scan(&u.ID, &u.DisplayName, &u.Email, &u.PasswordHash, &picture, &u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}

	u.ProfilePicture = picture.String

	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}

	return &u, nil
}

func (s *Store) CreateUserWithAccount(ctx context.Context, u *identity.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sign-up: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (display_name, email, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, u.DisplayName, u.Email, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return identity.ErrEmailTaken
		}

		return fmt.Errorf("creating user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO accounts (user_id, balance, version) VALUES ($1, 0, 0)`, u.ID); err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sign-up: %w", err)
	}

	return nil
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*identity.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrNotFound
		}

		return nil, fmt.Errorf("getting user: %w", err)
	}

	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	return s.getUser(ctx, "email = $1", email)
}

func (s *Store) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}

	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return identity.ErrNotFound
	}

	return nil
}

func (s *Store) updateUser(ctx context.Context, column string, id uuid.UUID, value string) (*identity.User, error) {
	query := `UPDATE users SET ` + column + ` = $1 WHERE id = $2 RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRowContext(ctx, query, value, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identity.ErrNotFound
		}

		return nil, fmt.Errorf("updating %s: %w", column, err)
	}

	return u, nil
}

func (s *Store) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) (*identity.User, error) {
	return s.updateUser(ctx, "display_name", id, name)
}

func (s *Store) UpdateProfilePicture(ctx context.Context, id uuid.UUID, ref string) (*identity.User, error) {
	return s.updateUser(ctx, "profile_picture", id, ref)
}

func (s *Store) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_tokens (token_id, expires_at) VALUES ($1, $2)
		ON CONFLICT (token_id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, tokenID, expiresAt); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	return nil
}

func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool

	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1)`, tokenID).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("checking revoked token: %w", err)
	}

	return revoked, nil
}

// PurgeRevokedTokens drops revocations whose tokens have expired on their own.
func (s *Store) PurgeRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}

	return res.RowsAffected()
}

func (s *Store) CreatePasswordReset(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`

	if _, err := s.db.ExecContext(ctx, query, tokenHash, userID, expiresAt); err != nil {
		return fmt.Errorf("creating password reset: %w", err)
	}

	return nil
}

func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	query := `
		UPDATE password_resets SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING user_id
	`

	var userID uuid.UUID
	if err := s.db.QueryRowContext(ctx, query, tokenHash, now).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, identity.ErrResetTokenInvalid
		}

		return uuid.Nil, fmt.Errorf("consuming password reset: %w", err)
	}

	return userID, nil
}
