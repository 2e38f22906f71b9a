package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/validation"
)

func TestService_Setup(t *testing.T) {
	userID := uuid.New()

	type testCase struct {
		name      string
		params    account.SetupParams
		setupMock func(m *account.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			params: account.SetupParams{
				Name: " Main ", Type: "Checking", Currency: "eur", OpeningBalance: "100,00",
			},
			setupMock: func(m *account.MockRepository) {
				m.EXPECT().
					UpdateDetails(gomock.Any(), userID, account.Details{
						Name: "Main", Type: "Checking", Currency: "EUR", OpeningBalance: 10000,
					}).
					Return(&account.Account{UserID: userID, Balance: 10000, OpeningBalance: 10000}, nil)
			},
		},
		{
			name:    "MissingFields",
			params:  account.SetupParams{Name: "Main"},
			wantErr: validation.ErrInvalid,
		},
		{
			name: "MalformedOpeningBalance",
			params: account.SetupParams{
				Name: "Main", Type: "Checking", Currency: "EUR", OpeningBalance: "lots",
			},
			wantErr: validation.ErrInvalid,
		},
		{
			name: "MissingAccount",
			params: account.SetupParams{
				Name: "Main", Type: "Checking", Currency: "EUR", OpeningBalance: "0",
			},
			setupMock: func(m *account.MockRepository) {
				m.EXPECT().UpdateDetails(gomock.Any(), userID, gomock.Any()).Return(nil, account.ErrNotFound)
			},
			wantErr: account.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := account.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			hub := live.NewHub()
			sub := hub.Subscribe(context.Background(), live.Topic{UserID: userID, Collection: live.Accounts})
			defer sub.Close()

			svc := account.NewService(repo, hub)
			got, err := svc.Setup(context.Background(), userID, tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				assert.Empty(t, sub.C)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(10000), got.OpeningBalance)
			assert.Len(t, sub.C, 1)
		})
	}
}

func TestService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := account.NewMockRepository(ctrl)
	userID := uuid.New()

	repo.EXPECT().GetAccount(gomock.Any(), userID).Return(nil, errors.New("db down"))

	_, err := account.NewService(repo, nil).Get(context.Background(), userID)
	assert.Error(t, err)
}
