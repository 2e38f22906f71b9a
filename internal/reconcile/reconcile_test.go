package reconcile_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/reconcile"
	"github.com/Willizberc/Pexfin/internal/transaction"
	"github.com/Willizberc/Pexfin/internal/transaction/inmemory"
)

func TestReconcileUser_CorrectsDrift(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	userID := uuid.New()
	store.PutAccount(account.Account{UserID: userID, Balance: 1000, OpeningBalance: 1000})

	_, err := transaction.NewService(store).Record(ctx, userID, transaction.Input{
		Description: "Salary", Amount: "5.00", Category: "Income",
	})
	require.NoError(t, err)

	acc, err := store.GetAccount(ctx, userID)
	require.NoError(t, err)

	acc.Balance = 99 // written behind the recorder's back
	store.PutAccount(*acc)

	hub := live.NewHub()
	events := hub.Subscribe(ctx, live.Topic{UserID: userID, Collection: live.Accounts})
	defer events.Close()

	svc := reconcile.NewService(store, store, hub, zerolog.Nop())

	res, err := svc.ReconcileUser(ctx, userID)
	require.NoError(t, err)

	assert.True(t, res.Corrected)
	assert.Equal(t, int64(1500), res.Expected)
	assert.Equal(t, int64(99-1500), res.Drift())

	acc, err = store.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), acc.Balance)
	assert.Equal(t, live.KindUpdated, (<-events.C).Kind)
}

func TestReconcileUser_Consistent(t *testing.T) {
	store := inmemory.New()
	userID := uuid.New()
	store.PutAccount(account.Account{UserID: userID, Balance: 700, OpeningBalance: 700, Version: 3})

	res, err := reconcile.NewService(store, store, nil, zerolog.Nop()).ReconcileUser(context.Background(), userID)
	require.NoError(t, err)

	assert.False(t, res.Corrected)
	assert.Zero(t, res.Drift())

	acc, err := store.GetAccount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), acc.Version)
}

func TestReconcileUser_RetriesOnVersionConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := account.NewMockRepository(ctrl)
	ledger := reconcile.NewMockLedger(ctrl)
	userID := uuid.New()

	gomock.InOrder(
		accounts.EXPECT().GetAccount(gomock.Any(), userID).
			Return(&account.Account{UserID: userID, Balance: 10, Version: 1}, nil),
		ledger.EXPECT().NetAmount(gomock.Any(), userID).Return(int64(50), nil),
		accounts.EXPECT().CompareAndSetBalance(gomock.Any(), userID, int64(1), int64(50)).
			Return(account.ErrVersionConflict),
		accounts.EXPECT().GetAccount(gomock.Any(), userID).
			Return(&account.Account{UserID: userID, Balance: 30, Version: 2}, nil),
		ledger.EXPECT().NetAmount(gomock.Any(), userID).Return(int64(70), nil),
		accounts.EXPECT().CompareAndSetBalance(gomock.Any(), userID, int64(2), int64(70)).Return(nil),
	)

	res, err := reconcile.NewService(accounts, ledger, nil, zerolog.Nop()).ReconcileUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), res.Expected)
}

func TestReconcileAll_SkipsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := account.NewMockRepository(ctrl)
	ledger := reconcile.NewMockLedger(ctrl)
	broken, drifted, fine := uuid.New(), uuid.New(), uuid.New()

	accounts.EXPECT().ListUserIDs(gomock.Any()).Return([]uuid.UUID{broken, drifted, fine}, nil)

	accounts.EXPECT().GetAccount(gomock.Any(), broken).Return(nil, account.ErrNotFound)

	accounts.EXPECT().GetAccount(gomock.Any(), drifted).Return(&account.Account{UserID: drifted, Balance: 1}, nil)
	ledger.EXPECT().NetAmount(gomock.Any(), drifted).Return(int64(2), nil)
	accounts.EXPECT().CompareAndSetBalance(gomock.Any(), drifted, int64(0), int64(2)).Return(nil)

	accounts.EXPECT().GetAccount(gomock.Any(), fine).Return(&account.Account{UserID: fine, Balance: 5}, nil)
	ledger.EXPECT().NetAmount(gomock.Any(), fine).Return(int64(5), nil)

	sum, err := reconcile.NewService(accounts, ledger, nil, zerolog.Nop()).ReconcileAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, reconcile.Summary{Checked: 2, Corrected: 1, Failed: 1}, sum)
}
