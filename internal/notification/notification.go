package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}
