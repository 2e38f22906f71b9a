// Package identity signs users up and in, issues and verifies bearer
// tokens, handles password resets and owns the user profile.
package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrResetTokenInvalid  = errors.New("password reset token is invalid or expired")
)

type User struct {
	ID             uuid.UUID
	DisplayName    string
	Email          string
	PasswordHash   string
	ProfilePicture string
	CreatedAt      time.Time
	LastLoginAt    *time.Time
}

// Credentials are returned by sign-up and sign-in.
type Credentials struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}
