package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("account not found")
	// ErrVersionConflict is returned by conditional balance writes when the
	// account changed after it was read.
	ErrVersionConflict = errors.New("account version conflict")
)

// Account is the per-user ledger document, keyed by the owner's user id.
type Account struct {
	UserID         uuid.UUID
	Name           string
	Type           string
	Currency       string
	Balance        int64 // Balance in cents
	OpeningBalance int64 // OpeningBalance in cents
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Details are the user-editable descriptive fields of an account.
type Details struct {
	Name           string
	Type           string
	Currency       string
	OpeningBalance int64
}
