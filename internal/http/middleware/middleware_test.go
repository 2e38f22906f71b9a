package middleware_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/identity"
	"github.com/Willizberc/Pexfin/internal/logger"
	"github.com/Willizberc/Pexfin/internal/session"
)

type authFunc func(ctx context.Context, token string) (session.Session, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (session.Session, error) {
	return f(ctx, token)
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()
	auth := authFunc(func(_ context.Context, token string) (session.Session, error) {
		if token != "good" {
			return session.Session{}, identity.ErrUnauthenticated
		}

		return session.Session{UserID: userID}, nil
	})

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(auth))
	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(middleware.MustSession(r).UserID.String()))
	})

	tests := []struct {
		name       string
		target     string
		header     string
		wantStatus int
	}{
		{"Bearer", "/me", "Bearer good", http.StatusOK},
		{"LowercaseScheme", "/me", "bearer good", http.StatusOK},
		{"QueryToken", "/me?access_token=good", "", http.StatusOK},
		{"BadToken", "/me", "Bearer bad", http.StatusUnauthorized},
		{"OtherScheme", "/me", "Basic Z29vZA==", http.StatusUnauthorized},
		{"Missing", "/me", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, userID.String(), rec.Body.String())
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger.NewWithWriter(&buf, "info")))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info().Msg("inside handler")
		w.WriteHeader(http.StatusAccepted)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	out := buf.String()
	assert.Contains(t, out, "inside handler")
	assert.Contains(t, out, `"status":202`)
	assert.Contains(t, out, `"request_id":`)
}
