package store_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/transaction"
	"github.com/Willizberc/Pexfin/internal/transaction/store"
)

var (
	accountColumns     = []string{"user_id", "name", "type", "currency", "balance", "opening_balance", "version", "created_at", "updated_at"}
	transactionColumns = []string{"id", "user_id", "description", "category", "amount", "date", "idempotency_key", "created_at"}
)

func newStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.New(db), mock
}

func TestStore_UnitOfWork(t *testing.T) {
	s, mock := newStore(t)
	ctx := context.Background()
	userID := uuid.New()
	txID := uuid.New()
	recID := uuid.New()
	now := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE user_id = $1 FOR UPDATE`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(userID.String(), "Main", "Checking", "EUR", int64(500), int64(0), int64(2), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WithArgs(userID, "Salary", "Income", int64(1000), now, "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(txID.String(), now))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO incomes (transaction_id, user_id, source, description, amount, date)`)).
		WithArgs(txID, userID, "Salary", "Salary", int64(1000), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(recID.String()))
	mock.ExpectExec(regexp.QuoteMeta(`WHERE user_id = $2 AND version = $3`)).
		WithArgs(int64(1500), userID, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	acc, err := tx.LockAccount(ctx, userID)
	require.NoError(t, err)

	tr := &transaction.Transaction{UserID: userID, Description: "Salary", Category: transaction.Income, Amount: 1000, Date: now}
	require.NoError(t, tx.CreateTransaction(ctx, tr))
	assert.Equal(t, txID, tr.ID)

	rec := &transaction.Record{TransactionID: tr.ID, UserID: userID, Category: transaction.Income, Label: "Salary", Description: "Salary", Amount: 1000, Date: now}
	require.NoError(t, tx.CreateRecord(ctx, rec))
	assert.Equal(t, recID, rec.ID)

	require.NoError(t, tx.UpdateBalance(ctx, userID, acc.Version, acc.Balance+tr.Signed()))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LockAccount_Missing(t *testing.T) {
	s, mock := newStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WillReturnRows(sqlmock.NewRows(accountColumns))
	mock.ExpectRollback()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	_, err = tx.LockAccount(ctx, uuid.New())
	assert.ErrorIs(t, err, account.ErrNotFound)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateTransaction_DuplicateKey(t *testing.T) {
	s, mock := newStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	err = tx.CreateTransaction(ctx, &transaction.Transaction{
		UserID: uuid.New(), Description: "x", Category: transaction.Expense, Amount: 1, IdempotencyKey: "k",
	})
	assert.ErrorIs(t, err, transaction.ErrDuplicateKey)
}

func TestStore_UpdateBalance_Conflict(t *testing.T) {
	s, mock := newStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts`)).WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	err = tx.UpdateBalance(ctx, uuid.New(), 4, 100)
	assert.ErrorIs(t, err, account.ErrVersionConflict)
}

func TestStore_ListTransactions(t *testing.T) {
	s, mock := newStore(t)
	userID := uuid.New()
	expense := transaction.Expense
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND category = $2 AND date >= $3 AND date <= $4 ORDER BY date DESC, created_at DESC LIMIT $5`)).
		WithArgs(userID, "Expense", start, end, 10).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(uuid.NewString(), userID.String(), "Rent", "Expense", int64(80000), date, nil, date).
			AddRow(uuid.NewString(), userID.String(), "Coffee", "Expense", int64(250), date, "k-2", date))

	txs, err := s.ListTransactions(context.Background(), transaction.ListFilter{
		UserID: userID, Category: &expense, StartDate: &start, EndDate: &end, Limit: 10,
	})

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, transaction.Expense, txs[0].Category)
	assert.Empty(t, txs[0].IdempotencyKey)
	assert.Equal(t, "k-2", txs[1].IdempotencyKey)
	assert.Equal(t, int64(-250), txs[1].Signed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListRecords_BothCategories(t *testing.T) {
	s, mock := newStore(t)
	userID := uuid.New()
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	recordColumns := []string{"id", "transaction_id", "user_id", "label", "description", "amount", "date"}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, transaction_id, user_id, source, description, amount, date FROM incomes`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(uuid.NewString(), uuid.NewString(), userID.String(), "Salary", "Salary", int64(1000), date))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, transaction_id, user_id, category, description, amount, date FROM expenses`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	records, err := s.ListRecords(context.Background(), transaction.RecordFilter{UserID: userID})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, transaction.Income, records[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetTransaction_NotFound(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE id = $1 AND user_id = $2`)).
		WillReturnRows(sqlmock.NewRows(transactionColumns))

	_, err := s.GetTransaction(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}

func TestStore_NetAmount(t *testing.T) {
	s, mock := newStore(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"net"}).AddRow(int64(-1250)))

	net, err := s.NetAmount(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, int64(-1250), net)
}
