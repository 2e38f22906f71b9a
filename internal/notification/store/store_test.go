package store_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Willizberc/Pexfin/internal/notification"
	"github.com/Willizberc/Pexfin/internal/notification/store"
)

func newStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.New(db), mock
}

func TestStore_ListNotifications_UnreadOnly(t *testing.T) {
	s, mock := newStore(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND NOT read ORDER BY created_at DESC`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "body", "read", "created_at"}).
			AddRow(uuid.NewString(), userID.String(), "Budget exceeded", "Groceries", false, now))

	got, err := s.ListNotifications(context.Background(), userID, true)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Read)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkRead_NotFound(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, notification.ErrNotFound)
}

func TestStore_CountUnread(t *testing.T) {
	s, mock := newStore(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM notifications`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := s.CountUnread(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
