package identity_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/Willizberc/Pexfin/internal/identity"
	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/validation"
)

type capturingMailer struct {
	email, token string
}

func (m *capturingMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.email, m.token = email, token
	return nil
}

func newService(t *testing.T, opts ...identity.Option) (*identity.Service, *identity.MockRepository, *capturingMailer) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := identity.NewMockRepository(ctrl)
	mailer := &capturingMailer{}

	opts = append([]identity.Option{identity.WithHashCost(bcrypt.MinCost)}, opts...)

	return identity.NewService(repo, identity.NewTokens("s3cret", time.Hour), mailer, opts...), repo, mailer
}

func hash(t *testing.T, password string) string {
	t.Helper()

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return string(h)
}

func TestService_SignUp(t *testing.T) {
	type testCase struct {
		name      string
		params    identity.SignUpParams
		setupMock func(m *identity.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "Success",
			params: identity.SignUpParams{DisplayName: "Ana", Email: " Ana@Example.com ", Password: "secret1"},
			setupMock: func(m *identity.MockRepository) {
				m.EXPECT().CreateUserWithAccount(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, u *identity.User) error {
						assert.Equal(t, "ana@example.com", u.Email)
						assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")))
						u.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name:    "ShortPassword",
			params:  identity.SignUpParams{DisplayName: "Ana", Email: "ana@example.com", Password: "12345"},
			wantErr: validation.ErrInvalid,
		},
		{
			name:    "LongPassword",
			params:  identity.SignUpParams{DisplayName: "Ana", Email: "ana@example.com", Password: strings.Repeat("p", 73)},
			wantErr: validation.ErrInvalid,
		},
		{
			name:    "BadEmail",
			params:  identity.SignUpParams{DisplayName: "Ana", Email: "ana", Password: "secret1"},
			wantErr: validation.ErrInvalid,
		},
		{
			name:    "MissingName",
			params:  identity.SignUpParams{Email: "ana@example.com", Password: "secret1"},
			wantErr: validation.ErrInvalid,
		},
		{
			name:   "EmailTaken",
			params: identity.SignUpParams{DisplayName: "Ana", Email: "ana@example.com", Password: "secret1"},
			setupMock: func(m *identity.MockRepository) {
				m.EXPECT().CreateUserWithAccount(gomock.Any(), gomock.Any()).Return(identity.ErrEmailTaken)
			},
			wantErr: identity.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newService(t)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := svc.SignUp(context.Background(), tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, got.Token)
			assert.Equal(t, "ana@example.com", got.User.Email)
		})
	}
}

func TestService_SignIn_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	repo.EXPECT().GetUserByEmail(gomock.Any(), "ghost@example.com").Return(nil, identity.ErrNotFound)
	repo.EXPECT().GetUserByEmail(gomock.Any(), "ana@example.com").
		Return(&identity.User{ID: uuid.New(), Email: "ana@example.com", PasswordHash: hash(t, "right-one")}, nil)

	_, errUnknown := svc.SignIn(ctx, "ghost@example.com", "whatever")
	_, errWrong := svc.SignIn(ctx, "ana@example.com", "wrong-one")

	assert.ErrorIs(t, errUnknown, identity.ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrong)
}

func TestService_SignInAuthenticateSignOut(t *testing.T) {
	hub := live.NewHub()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc, repo, _ := newService(t,
		identity.WithPublisher(hub),
		identity.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()
	userID := uuid.New()

	authEvents := hub.Subscribe(ctx, live.Topic{UserID: userID, Collection: live.Auth})
	defer authEvents.Close()

	repo.EXPECT().GetUserByEmail(gomock.Any(), "ana@example.com").
		Return(&identity.User{ID: userID, Email: "ana@example.com", PasswordHash: hash(t, "secret1")}, nil)
	repo.EXPECT().TouchLastLogin(gomock.Any(), userID, now).Return(nil)

	creds, err := svc.SignIn(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), creds.ExpiresAt)
	assert.Equal(t, live.KindSignedIn, (<-authEvents.C).Kind)

	repo.EXPECT().IsTokenRevoked(gomock.Any(), gomock.Any()).Return(false, nil)

	sess, err := svc.Authenticate(ctx, creds.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, sess.UserID)

	repo.EXPECT().RevokeToken(gomock.Any(), sess.TokenID, sess.ExpiresAt).Return(nil)
	require.NoError(t, svc.SignOut(ctx, sess))
	assert.Equal(t, live.KindSignedOut, (<-authEvents.C).Kind)

	repo.EXPECT().IsTokenRevoked(gomock.Any(), sess.TokenID).Return(true, nil)

	_, err = svc.Authenticate(ctx, creds.Token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
}

func TestService_PasswordReset(t *testing.T) {
	svc, repo, mailer := newService(t)
	ctx := context.Background()
	userID := uuid.New()

	var storedHash string

	repo.EXPECT().GetUserByEmail(gomock.Any(), "ana@example.com").
		Return(&identity.User{ID: userID, Email: "ana@example.com"}, nil)
	repo.EXPECT().CreatePasswordReset(gomock.Any(), userID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, h string, _ time.Time) error {
			storedHash = h
			return nil
		})

	require.NoError(t, svc.RequestPasswordReset(ctx, "ana@example.com"))
	require.Len(t, mailer.token, 64)
	assert.NotEqual(t, mailer.token, storedHash)

	repo.EXPECT().ConsumePasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, h string, _ time.Time) (uuid.UUID, error) {
			assert.Equal(t, storedHash, h)
			return userID, nil
		})
	repo.EXPECT().UpdatePassword(gomock.Any(), userID, gomock.Any()).Return(nil)

	require.NoError(t, svc.ResetPassword(ctx, mailer.token, "new-secret"))
}

func TestService_RequestPasswordReset_UnknownEmail(t *testing.T) {
	svc, repo, mailer := newService(t)

	repo.EXPECT().GetUserByEmail(gomock.Any(), "ghost@example.com").Return(nil, identity.ErrNotFound)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, mailer.token)
}

func TestService_ResetPassword_InvalidToken(t *testing.T) {
	svc, repo, _ := newService(t)

	repo.EXPECT().ConsumePasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(uuid.Nil, identity.ErrResetTokenInvalid)

	err := svc.ResetPassword(context.Background(), "deadbeef", "new-secret")
	assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
}

func TestService_UploadProfilePicture(t *testing.T) {
	ctrl := gomock.NewController(t)
	pictures := identity.NewMockPictures(ctrl)
	svc, repo, _ := newService(t, identity.WithPictures(pictures))
	userID := uuid.New()

	pictures.EXPECT().Put(gomock.Any(), gomock.Any(), "image/png", gomock.Any()).
		DoAndReturn(func(_ context.Context, key, _ string, _ io.Reader) (string, error) {
			assert.True(t, strings.HasPrefix(key, "profiles/"+userID.String()+"/"))
			return "https://storage.googleapis.com/bucket/" + key, nil
		})
	repo.EXPECT().UpdateProfilePicture(gomock.Any(), userID, gomock.Any()).
		Return(&identity.User{ID: userID, ProfilePicture: "ref"}, nil)

	u, err := svc.UploadProfilePicture(context.Background(), userID, "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "ref", u.ProfilePicture)
}

func TestService_UploadProfilePicture_Disabled(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.UploadProfilePicture(context.Background(), uuid.New(), "image/png", strings.NewReader("png"))
	assert.ErrorIs(t, err, identity.ErrUploadsDisabled)
}

func TestService_ChangePassword_TooLong(t *testing.T) {
	svc, _, _ := newService(t)

	err := svc.ChangePassword(context.Background(), uuid.New(), strings.Repeat("p", 73))

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be at most 72 bytes", verr.Fields["password"])
}
