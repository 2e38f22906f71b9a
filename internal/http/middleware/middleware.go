package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Willizberc/Pexfin/internal/http/respond"
	"github.com/Willizberc/Pexfin/internal/identity"
	"github.com/Willizberc/Pexfin/internal/logger"
	"github.com/Willizberc/Pexfin/internal/session"
)

// Logger stores a request scoped logger in the context and writes one
// access log line per request.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.With().Str("request_id", chimw.GetReqID(r.Context())).Logger()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLog)))

			reqLog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (session.Session, error)
}

// Authenticate requires a valid bearer token and puts its session in the
// request context. The token may also come from the access_token query
// parameter, which browsers need for websocket upgrades.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				respond.Error(w, r, identity.ErrUnauthenticated)
				return
			}

			sess, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				respond.Error(w, r, err)
				return
			}

			ctx := session.WithSession(r.Context(), sess)

			log := logger.FromContext(ctx).With().Str("user_id", sess.UserID.String()).Logger()
			ctx = logger.WithContext(ctx, log)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}

		return ""
	}

	return r.URL.Query().Get("access_token")
}

// MustSession returns the session set by Authenticate. Handlers mounted
// behind Authenticate always have one.
func MustSession(r *http.Request) session.Session {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		panic("middleware: no session in request context")
	}

	return sess
}
