package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/Willizberc/Pexfin/internal/http/auth"
	"github.com/Willizberc/Pexfin/internal/identity"
	"github.com/Willizberc/Pexfin/internal/session"
)

type capturingMailer struct {
	email, token string
}

func (m *capturingMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.email, m.token = email, token
	return nil
}

var sess = session.Session{
	UserID:    uuid.New(),
	Email:     "ana@example.com",
	TokenID:   "jti-1",
	ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
}

func newRouter(t *testing.T) (http.Handler, *identity.MockRepository, *capturingMailer) {
	t.Helper()

	repo := identity.NewMockRepository(gomock.NewController(t))
	mailer := &capturingMailer{}
	svc := identity.NewService(repo, identity.NewTokens("s3cret", time.Hour), mailer, identity.WithHashCost(bcrypt.MinCost))
	h := auth.NewHandler(svc)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		r.Group(h.PublicRoutes)
		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					next.ServeHTTP(w, req.WithContext(session.WithSession(req.Context(), sess)))
				})
			})
			h.Routes(r)
		})
	})

	return r, repo, mailer
}

func post(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHandler_SignUp(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *identity.MockRepository)
		wantStatus int
		wantBody   string
	}{
		{
			name: "Success",
			body: `{"display_name":"Ana","email":"Ana@Example.com","password":"secret1"}`,
			setupMock: func(m *identity.MockRepository) {
				m.EXPECT().CreateUserWithAccount(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *identity.User) error {
					u.ID = uuid.New()
					return nil
				})
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"email":"ana@example.com"`,
		},
		{
			name: "EmailTaken",
			body: `{"display_name":"Ana","email":"ana@example.com","password":"secret1"}`,
			setupMock: func(m *identity.MockRepository) {
				m.EXPECT().CreateUserWithAccount(gomock.Any(), gomock.Any()).Return(identity.ErrEmailTaken)
			},
			wantStatus: http.StatusConflict,
			wantBody:   "email already registered",
		},
		{
			name:       "ShortPassword",
			body:       `{"display_name":"Ana","email":"ana@example.com","password":"123"}`,
			setupMock:  func(*identity.MockRepository) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"password":"must be at least 6 characters"`,
		},
		{
			name:       "PasswordPastBcryptLimit",
			body:       `{"display_name":"Ana","email":"ana@example.com","password":"` + strings.Repeat("p", 80) + `"}`,
			setupMock:  func(*identity.MockRepository) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"password":"must be at most 72 bytes"`,
		},
		{
			name:       "UnknownField",
			body:       `{"name":"Ana"}`,
			setupMock:  func(*identity.MockRepository) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   "malformed request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, repo, _ := newRouter(t)
			tt.setupMock(repo)

			rec := post(h, http.MethodPost, "/auth/signup", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHandler_SignIn(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &identity.User{ID: uuid.New(), DisplayName: "Ana", Email: "ana@example.com", PasswordHash: string(hash)}

	t.Run("Success", func(t *testing.T) {
		h, repo, _ := newRouter(t)
		repo.EXPECT().GetUserByEmail(gomock.Any(), "ana@example.com").Return(user, nil)
		repo.EXPECT().TouchLastLogin(gomock.Any(), user.ID, gomock.Any()).Return(nil)

		rec := post(h, http.MethodPost, "/auth/signin", `{"email":"ana@example.com","password":"secret1"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		h, repo, _ := newRouter(t)
		repo.EXPECT().GetUserByEmail(gomock.Any(), "ana@example.com").Return(user, nil)

		rec := post(h, http.MethodPost, "/auth/signin", `{"email":"ana@example.com","password":"nope12"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandler_SignOut(t *testing.T) {
	h, repo, _ := newRouter(t)
	repo.EXPECT().RevokeToken(gomock.Any(), "jti-1", sess.ExpiresAt).Return(nil)

	rec := post(h, http.MethodPost, "/auth/signout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_PasswordReset(t *testing.T) {
	h, repo, mailer := newRouter(t)
	userID := uuid.New()

	repo.EXPECT().GetUserByEmail(gomock.Any(), "ana@example.com").
		Return(&identity.User{ID: userID, Email: "ana@example.com"}, nil)
	repo.EXPECT().CreatePasswordReset(gomock.Any(), userID, gomock.Any(), gomock.Any()).Return(nil)

	rec := post(h, http.MethodPost, "/auth/password/reset", `{"email":"ana@example.com"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotEmpty(t, mailer.token)

	repo.EXPECT().ConsumePasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).Return(userID, nil)
	repo.EXPECT().UpdatePassword(gomock.Any(), userID, gomock.Any()).Return(nil)

	rec = post(h, http.MethodPost, "/auth/password/reset/confirm", `{"token":"`+mailer.token+`","password":"newsecret"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	repo.EXPECT().ConsumePasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).Return(uuid.Nil, identity.ErrResetTokenInvalid)

	rec = post(h, http.MethodPost, "/auth/password/reset/confirm", `{"token":"`+mailer.token+`","password":"newsecret"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ChangePassword(t *testing.T) {
	h, repo, _ := newRouter(t)
	repo.EXPECT().UpdatePassword(gomock.Any(), sess.UserID, gomock.Any()).Return(nil)

	rec := post(h, http.MethodPut, "/auth/password", `{"password":"newsecret"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = post(h, http.MethodPut, "/auth/password", `{"password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
