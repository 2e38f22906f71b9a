package transaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/transaction"
	"github.com/Willizberc/Pexfin/internal/validation"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func TestService_Record_ValidationMakesNoRepositoryCalls(t *testing.T) {
	type testCase struct {
		name       string
		input      transaction.Input
		wantFields []string
	}

	tests := []testCase{
		{
			name:       "AllMissing",
			input:      transaction.Input{},
			wantFields: []string{"amount", "category", "description"},
		},
		{
			name:       "MissingDescription",
			input:      transaction.Input{Amount: "10", Category: "Income"},
			wantFields: []string{"description"},
		},
		{
			name:       "BlankAmount",
			input:      transaction.Input{Description: "Salary", Amount: "  ", Category: "Income"},
			wantFields: []string{"amount"},
		},
		{
			name:       "NonNumericAmount",
			input:      transaction.Input{Description: "Salary", Amount: "abc", Category: "Income"},
			wantFields: []string{"amount"},
		},
		{
			name:       "ZeroAmount",
			input:      transaction.Input{Description: "Salary", Amount: "0", Category: "Income"},
			wantFields: []string{"amount"},
		},
		{
			name:       "NegativeAmount",
			input:      transaction.Input{Description: "Salary", Amount: "-5", Category: "Income"},
			wantFields: []string{"amount"},
		},
		{
			name:       "UnknownCategory",
			input:      transaction.Input{Description: "Salary", Amount: "5", Category: "Transfer"},
			wantFields: []string{"category"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// No expectations: any repository call fails the test.
			repo := transaction.NewMockRepository(ctrl)
			svc := transaction.NewService(repo)

			got, err := svc.Record(context.Background(), uuid.New(), tt.input)

			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, transaction.ErrInvalidInput)

			var verr *validation.Error
			require.ErrorAs(t, err, &verr)

			for _, f := range tt.wantFields {
				assert.Contains(t, verr.Fields, f)
			}

			assert.Len(t, verr.Fields, len(tt.wantFields))
		})
	}
}

func TestService_Record(t *testing.T) {
	userID := uuid.New()
	txID := uuid.New()

	type testCase struct {
		name        string
		input       transaction.Input
		setupMock   func(repo *transaction.MockRepository, tx *transaction.MockTx)
		wantBalance int64
		wantErr     error
	}

	tests := []testCase{
		{
			name:  "Income",
			input: transaction.Input{Description: "Salary", Amount: "1000.50", Category: "income"},
			setupMock: func(repo *transaction.MockRepository, tx *transaction.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().LockAccount(gomock.Any(), userID).
					Return(&account.Account{UserID: userID, Balance: 2000, Version: 7}, nil)
				tx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tr *transaction.Transaction) error {
						assert.Equal(t, transaction.Income, tr.Category)
						assert.Equal(t, int64(100050), tr.Amount)
						assert.Equal(t, fixedNow, tr.Date)
						tr.ID = txID
						return nil
					})
				tx.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, r *transaction.Record) error {
						assert.Equal(t, txID, r.TransactionID)
						assert.Equal(t, "Salary", r.Label)
						return nil
					})
				tx.EXPECT().UpdateBalance(gomock.Any(), userID, int64(7), int64(102050)).Return(nil)
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantBalance: 102050,
		},
		{
			name:  "Expense",
			input: transaction.Input{Description: "Groceries", Amount: "12,30", Category: "Expense"},
			setupMock: func(repo *transaction.MockRepository, tx *transaction.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().LockAccount(gomock.Any(), userID).
					Return(&account.Account{UserID: userID, Balance: 1000, Version: 1}, nil)
				tx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
				tx.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil)
				tx.EXPECT().UpdateBalance(gomock.Any(), userID, int64(1), int64(-230)).Return(nil)
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantBalance: -230,
		},
		{
			name:  "MissingAccount",
			input: transaction.Input{Description: "Salary", Amount: "10", Category: "Income"},
			setupMock: func(repo *transaction.MockRepository, tx *transaction.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().LockAccount(gomock.Any(), userID).Return(nil, account.ErrNotFound)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: transaction.ErrAccountNotFound,
		},
		{
			name:  "RecordInsertFails",
			input: transaction.Input{Description: "Salary", Amount: "10", Category: "Income"},
			setupMock: func(repo *transaction.MockRepository, tx *transaction.MockTx) {
				boom := errors.New("insert failed")

				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().LockAccount(gomock.Any(), userID).Return(&account.Account{UserID: userID}, nil)
				tx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
				tx.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(boom)
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: errors.New("insert failed"),
		},
		{
			name:  "ConflictsExhaustRetries",
			input: transaction.Input{Description: "Salary", Amount: "10", Category: "Income"},
			setupMock: func(repo *transaction.MockRepository, tx *transaction.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil).Times(3)
				tx.EXPECT().LockAccount(gomock.Any(), userID).Return(&account.Account{UserID: userID}, nil).Times(3)
				tx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil).Times(3)
				tx.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil).Times(3)
				tx.EXPECT().UpdateBalance(gomock.Any(), userID, int64(0), int64(1000)).
					Return(account.ErrVersionConflict).Times(3)
				tx.EXPECT().Rollback().Return(nil).Times(3)
			},
			wantErr: transaction.ErrVersionConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			tx := transaction.NewMockTx(ctrl)
			tt.setupMock(repo, tx)

			svc := transaction.NewService(repo, transaction.WithClock(func() time.Time { return fixedNow }))
			got, err := svc.Record(context.Background(), userID, tt.input)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, got)

				if errors.Is(tt.wantErr, transaction.ErrAccountNotFound) || errors.Is(tt.wantErr, transaction.ErrVersionConflict) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, got.Balance)
			assert.False(t, got.Replayed)
			assert.NotNil(t, got.Record)
		})
	}
}

func TestService_Record_RetriesOnVersionConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	repo := transaction.NewMockRepository(ctrl)
	stale := transaction.NewMockTx(ctrl)
	fresh := transaction.NewMockTx(ctrl)

	gomock.InOrder(
		repo.EXPECT().Begin(gomock.Any()).Return(stale, nil),
		repo.EXPECT().Begin(gomock.Any()).Return(fresh, nil),
	)

	stale.EXPECT().LockAccount(gomock.Any(), userID).Return(&account.Account{Balance: 100, Version: 1}, nil)
	stale.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
	stale.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil)
	stale.EXPECT().UpdateBalance(gomock.Any(), userID, int64(1), int64(150)).Return(account.ErrVersionConflict)
	stale.EXPECT().Rollback().Return(nil)

	fresh.EXPECT().LockAccount(gomock.Any(), userID).Return(&account.Account{Balance: 300, Version: 2}, nil)
	fresh.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
	fresh.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil)
	fresh.EXPECT().UpdateBalance(gomock.Any(), userID, int64(2), int64(350)).Return(nil)
	fresh.EXPECT().Commit().Return(nil)
	fresh.EXPECT().Rollback().Return(nil)

	svc := transaction.NewService(repo)
	got, err := svc.Record(context.Background(), userID, transaction.Input{
		Description: "Gift", Amount: "0.50", Category: "Income",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(350), got.Balance)
}

func TestService_Record_IdempotencyKeyReplays(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	existing := &transaction.Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		Description:    "Salary",
		Category:       transaction.Income,
		Amount:         1000,
		IdempotencyKey: "k-1",
	}

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().FindByIdempotencyKey(gomock.Any(), userID, "k-1").Return(existing, nil)

	svc := transaction.NewService(repo)
	got, err := svc.Record(context.Background(), userID, transaction.Input{
		Description: "Salary", Amount: "10", Category: "Income", IdempotencyKey: " k-1 ",
	})

	require.NoError(t, err)
	assert.True(t, got.Replayed)
	assert.Equal(t, existing.ID, got.Transaction.ID)
}

func TestService_Record_IdempotencyKeyReusedForOtherInput(t *testing.T) {
	userID := uuid.New()
	existing := &transaction.Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		Description:    "Rent",
		Category:       transaction.Expense,
		Amount:         90000,
		IdempotencyKey: "k-1",
	}

	tests := []struct {
		name  string
		input transaction.Input
	}{
		{"OtherCategory", transaction.Input{Description: "Rent", Amount: "900", Category: "Income"}},
		{"OtherAmount", transaction.Input{Description: "Rent", Amount: "901", Category: "Expense"}},
		{"OtherDescription", transaction.Input{Description: "Top up", Amount: "900", Category: "Expense"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := transaction.NewMockRepository(ctrl)
			repo.EXPECT().FindByIdempotencyKey(gomock.Any(), userID, "k-1").Return(existing, nil)

			tt.input.IdempotencyKey = "k-1"

			_, err := transaction.NewService(repo).Record(context.Background(), userID, tt.input)
			assert.ErrorIs(t, err, transaction.ErrKeyReused)
		})
	}
}

func TestService_Record_NotifiesAfterCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	repo := transaction.NewMockRepository(ctrl)
	tx := transaction.NewMockTx(ctrl)
	observer := transaction.NewMockObserver(ctrl)

	repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().LockAccount(gomock.Any(), userID).Return(&account.Account{UserID: userID}, nil)
	tx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().UpdateBalance(gomock.Any(), userID, int64(0), int64(-900)).Return(nil)
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback().Return(nil)
	observer.EXPECT().Recorded(gomock.Any(), gomock.Any()).Do(func(_ context.Context, r *transaction.Receipt) {
		assert.Equal(t, transaction.Expense, r.Transaction.Category)
	})

	hub := live.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expenses := hub.Subscribe(ctx, live.Topic{UserID: userID, Collection: live.Expenses})
	accounts := hub.Subscribe(ctx, live.Topic{UserID: userID, Collection: live.Accounts})
	income := hub.Subscribe(ctx, live.Topic{UserID: userID, Collection: live.Income})

	svc := transaction.NewService(repo,
		transaction.WithPublisher(hub),
		transaction.WithObservers(observer),
	)

	_, err := svc.Record(ctx, userID, transaction.Input{Description: "Rent", Amount: "9", Category: "Expense"})
	require.NoError(t, err)

	assert.Len(t, expenses.C, 1)
	assert.Len(t, accounts.C, 1)
	assert.Empty(t, income.C)
}

func TestService_ImportBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	entries := []transaction.Entry{
		{Date: day, Description: "Salary", Category: transaction.Income, Amount: 200000},
		{Date: day, Description: "Coffee", Category: transaction.Expense, Amount: 250},
		{Date: day.AddDate(0, 0, 1), Description: "Rent", Category: transaction.Expense, Amount: 80000},
	}

	repo := transaction.NewMockRepository(ctrl)
	tx := transaction.NewMockTx(ctrl)

	repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().LockAccount(gomock.Any(), userID).Return(&account.Account{Balance: 1000, Version: 3}, nil)
	tx.EXPECT().FindDuplicates(gomock.Any(), userID, entries).Return([]*transaction.Transaction{
		{Date: day.Add(9 * time.Hour), Description: "Coffee", Category: transaction.Expense, Amount: 250},
	}, nil)
	tx.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	tx.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	tx.EXPECT().UpdateBalance(gomock.Any(), userID, int64(3), int64(1000+200000-80000)).Return(nil)
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback().Return(nil)

	got, err := transaction.NewService(repo).ImportBatch(context.Background(), userID, entries)

	require.NoError(t, err)
	assert.Len(t, got.Imported, 2)
	require.Len(t, got.Duplicates, 1)
	assert.Equal(t, "Coffee", got.Duplicates[0].Description)
	assert.Equal(t, int64(121000), got.Balance)
}

func TestService_ImportBatch_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := transaction.NewMockRepository(ctrl)

	got, err := transaction.NewService(repo).ImportBatch(context.Background(), uuid.New(), nil)

	require.NoError(t, err)
	assert.Empty(t, got.Imported)
}

func TestService_ImportBatch_InvalidEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := transaction.NewMockRepository(ctrl)

	_, err := transaction.NewService(repo).ImportBatch(context.Background(), uuid.New(), []transaction.Entry{
		{Date: time.Now(), Description: "x", Category: transaction.Income, Amount: 0},
	})

	assert.ErrorIs(t, err, transaction.ErrInvalidInput)
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	filter := transaction.ListFilter{UserID: userID, Limit: 5}

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().ListTransactions(gomock.Any(), filter).Return([]*transaction.Transaction{{ID: uuid.New()}}, nil)

	got, err := transaction.NewService(repo).List(context.Background(), filter)

	require.NoError(t, err)
	assert.Len(t, got, 1)
}
