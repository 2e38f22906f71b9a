package transaction

import (
	"errors"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/validation"
)

var (
	ErrNotFound = errors.New("transaction not found")
	// ErrAccountNotFound means the user has no account; nothing was written.
	ErrAccountNotFound = account.ErrNotFound
	// ErrVersionConflict is returned once the retry budget is exhausted.
	ErrVersionConflict = account.ErrVersionConflict
	// ErrDuplicateKey is returned by stores when an idempotency key is reused.
	ErrDuplicateKey = errors.New("idempotency key already used")
	// ErrKeyReused is returned when a key comes back with a different transaction.
	ErrKeyReused    = errors.New("idempotency key was used for a different transaction")
	ErrInvalidInput = validation.ErrInvalid
	// ErrBalanceRange means the new balance would not fit in int64 cents.
	ErrBalanceRange = errors.New("balance out of range")
)
