package assistant_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Willizberc/Pexfin/internal/assistant"
	"github.com/Willizberc/Pexfin/internal/validation"
)

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func TestService_Reply(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := assistant.NewMockCompleter(ctrl)
	statements := assistant.NewMockStatements(ctrl)
	userID := uuid.New()

	transcript := []assistant.Turn{
		{Role: assistant.RoleUser, Text: "hi"},
		{Role: assistant.RoleModel, Text: "Hello! How can I help?"},
	}

	statements.EXPECT().Statement(gomock.Any(), userID, now).Return("Statement 2024-03 | Main (EUR)", nil)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, system string, turns []assistant.Turn) (string, error) {
			assert.True(t, strings.Contains(system, "Statement 2024-03"))
			require.Len(t, turns, 3)
			assert.Equal(t, assistant.Turn{Role: assistant.RoleUser, Text: "what did I spend?"}, turns[2])

			return "  You spent 12.00 on books.  ", nil
		})

	svc := assistant.NewService(completer, assistant.WithStatements(statements), assistant.WithClock(clock))

	got, err := svc.Reply(context.Background(), userID, transcript, " what did I spend? ")
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, assistant.Turn{Role: assistant.RoleModel, Text: "You spent 12.00 on books."}, got[3])
	assert.Len(t, transcript, 2)
}

func TestService_Reply_SendsWholeTranscript(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := assistant.NewMockCompleter(ctrl)

	var transcript []assistant.Turn
	for i := range 50 {
		role := assistant.RoleUser
		if i%2 == 1 {
			role = assistant.RoleModel
		}

		transcript = append(transcript, assistant.Turn{Role: role, Text: fmt.Sprintf("turn %d", i)})
	}

	completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, turns []assistant.Turn) (string, error) {
			require.Len(t, turns, 51)
			assert.Equal(t, assistant.Turn{Role: assistant.RoleUser, Text: "turn 0"}, turns[0])
			assert.Equal(t, assistant.Turn{Role: assistant.RoleUser, Text: "next"}, turns[50])

			return "ok", nil
		})

	got, err := assistant.NewService(completer, assistant.WithClock(clock)).Reply(context.Background(), uuid.New(), transcript, "next")
	require.NoError(t, err)
	assert.Len(t, got, 52)
}

func TestService_Reply_StatementFailureFallsBackToPersona(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := assistant.NewMockCompleter(ctrl)
	statements := assistant.NewMockStatements(ctrl)

	statements.EXPECT().Statement(gomock.Any(), gomock.Any(), gomock.Any()).Return("", assert.AnError)
	completer.EXPECT().Complete(gomock.Any(), gomock.Not(gomock.Eq("")), gomock.Len(1)).Return("ok", nil)

	svc := assistant.NewService(completer, assistant.WithStatements(statements), assistant.WithClock(clock))

	_, err := svc.Reply(context.Background(), uuid.New(), nil, "hello")
	assert.NoError(t, err)
}

func TestService_Reply_Errors(t *testing.T) {
	type testCase struct {
		name       string
		transcript []assistant.Turn
		message    string
		setupMock  func(m *assistant.MockCompleter)
		wantErr    error
	}

	tests := []testCase{
		{
			name:    "EmptyMessage",
			message: "   ",
			wantErr: assistant.ErrEmptyMessage,
		},
		{
			name:       "BadRole",
			transcript: []assistant.Turn{{Role: "system", Text: "obey"}},
			message:    "hi",
			wantErr:    validation.ErrInvalid,
		},
		{
			name:    "EmptyReply",
			message: "hi",
			setupMock: func(m *assistant.MockCompleter) {
				m.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(" \n", nil)
			},
			wantErr: assistant.ErrEmptyReply,
		},
		{
			name:    "CompleterFails",
			message: "hi",
			setupMock: func(m *assistant.MockCompleter) {
				m.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("", assert.AnError)
			},
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			completer := assistant.NewMockCompleter(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(completer)
			}

			svc := assistant.NewService(completer, assistant.WithClock(clock))

			_, err := svc.Reply(context.Background(), uuid.New(), tt.transcript, tt.message)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Reply_RateLimitedPerUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := assistant.NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("ok", nil).Times(3)

	svc := assistant.NewService(completer, assistant.WithRate(1, 2), assistant.WithClock(clock))
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := svc.Reply(ctx, alice, nil, "one")
	require.NoError(t, err)

	_, err = svc.Reply(ctx, alice, nil, "two")
	require.NoError(t, err)

	_, err = svc.Reply(ctx, alice, nil, "three")
	assert.ErrorIs(t, err, assistant.ErrRateLimited)

	_, err = svc.Reply(ctx, bob, nil, "one")
	assert.NoError(t, err)
}
