package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Willizberc/Pexfin/internal/http/account"
	"github.com/Willizberc/Pexfin/internal/http/assistant"
	"github.com/Willizberc/Pexfin/internal/http/auth"
	"github.com/Willizberc/Pexfin/internal/http/budget"
	"github.com/Willizberc/Pexfin/internal/http/importcsv"
	"github.com/Willizberc/Pexfin/internal/http/live"
	"github.com/Willizberc/Pexfin/internal/http/middleware"
	"github.com/Willizberc/Pexfin/internal/http/notification"
	"github.com/Willizberc/Pexfin/internal/http/profile"
	"github.com/Willizberc/Pexfin/internal/http/report"
	"github.com/Willizberc/Pexfin/internal/http/transaction"
	"github.com/Willizberc/Pexfin/internal/metrics"
)

type Handlers struct {
	Auth          *auth.Handler
	Profile       *profile.Handler
	Account       *account.Handler
	Transactions  *transaction.Handler
	Import        *importcsv.Handler
	Reports       *report.Handler
	Budgets       *budget.Handler
	Notifications *notification.Handler
	// Assistant is nil when no completion backend is configured.
	Assistant *assistant.Handler
	Live      *live.Handler
}

type Options struct {
	Log            zerolog.Logger
	Authenticator  middleware.Authenticator
	AllowedOrigins []string
}

func New(h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.Logger(opts.Log))
	router.Use(chimw.Recoverer)
	router.Use(metrics.InstrumentHandler)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", metrics.Handler())

	authn := middleware.Authenticate(opts.Authenticator)
	jsonOnly := chimw.AllowContentType("application/json")

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(jsonOnly)
			h.Auth.PublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				h.Auth.Routes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authn)

			// Pictures may be uploaded as raw image bodies.
			r.Route("/profile", h.Profile.Routes)

			r.Route("/transactions", func(r chi.Router) {
				r.Route("/import", h.Import.Routes)

				r.Group(func(r chi.Router) {
					r.Use(jsonOnly)
					h.Transactions.Routes(r)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(jsonOnly)

				r.Route("/account", h.Account.Routes)
				r.Route("/reports", h.Reports.Routes)
				r.Route("/budgets", h.Budgets.BudgetRoutes)
				r.Route("/goals", h.Budgets.GoalRoutes)
				r.Route("/notifications", h.Notifications.Routes)

				if h.Assistant != nil {
					r.Route("/assistant", h.Assistant.Routes)
				}
			})

			r.Route("/live", h.Live.Routes)
		})
	})

	return router
}
