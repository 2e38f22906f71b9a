// Package session carries the authenticated identity through a request.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the authenticated caller of an operation.
type Session struct {
	UserID    uuid.UUID
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx and whether one was present.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
