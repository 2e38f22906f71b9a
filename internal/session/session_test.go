package session_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Willizberc/Pexfin/internal/session"
)

func TestFromContext(t *testing.T) {
	_, ok := session.FromContext(context.Background())
	assert.False(t, ok)

	want := session.Session{UserID: uuid.New(), Email: "ana@example.com", TokenID: "t1"}
	got, ok := session.FromContext(session.WithSession(context.Background(), want))

	assert.True(t, ok)
	assert.Equal(t, want, got)
}
