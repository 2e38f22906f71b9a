package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Willizberc/Pexfin/internal/account"
	accountStore "github.com/Willizberc/Pexfin/internal/account/store"
	"github.com/Willizberc/Pexfin/internal/assistant"
	"github.com/Willizberc/Pexfin/internal/budget"
	budgetStore "github.com/Willizberc/Pexfin/internal/budget/store"
	"github.com/Willizberc/Pexfin/internal/config"
	"github.com/Willizberc/Pexfin/internal/database"
	pexfinHttp "github.com/Willizberc/Pexfin/internal/http"
	accountHandler "github.com/Willizberc/Pexfin/internal/http/account"
	assistantHandler "github.com/Willizberc/Pexfin/internal/http/assistant"
	authHandler "github.com/Willizberc/Pexfin/internal/http/auth"
	budgetHandler "github.com/Willizberc/Pexfin/internal/http/budget"
	importHandler "github.com/Willizberc/Pexfin/internal/http/importcsv"
	liveHandler "github.com/Willizberc/Pexfin/internal/http/live"
	notificationHandler "github.com/Willizberc/Pexfin/internal/http/notification"
	profileHandler "github.com/Willizberc/Pexfin/internal/http/profile"
	reportHandler "github.com/Willizberc/Pexfin/internal/http/report"
	txHandler "github.com/Willizberc/Pexfin/internal/http/transaction"
	"github.com/Willizberc/Pexfin/internal/identity"
	identityStore "github.com/Willizberc/Pexfin/internal/identity/store"
	"github.com/Willizberc/Pexfin/internal/importer"
	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/logger"
	"github.com/Willizberc/Pexfin/internal/media"
	"github.com/Willizberc/Pexfin/internal/metrics"
	"github.com/Willizberc/Pexfin/internal/notification"
	notificationStore "github.com/Willizberc/Pexfin/internal/notification/store"
	"github.com/Willizberc/Pexfin/internal/reconcile"
	"github.com/Willizberc/Pexfin/internal/report"
	"github.com/Willizberc/Pexfin/internal/transaction"
	txStore "github.com/Willizberc/Pexfin/internal/transaction/store"
)

const jobTimeout = 10 * time.Minute

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.LogLevel, cfg.Development())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if cfg.DB.Migrate {
		version, err := database.Migrate(cfg.ConnectionString())
		if err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		log.Info().Uint("version", version).Msg("schema up to date")
	}

	db, err := database.New(ctx, cfg.ConnectionString(), cfg.Pool())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	var (
		accounts      = accountStore.New(db)
		transactions  = txStore.New(db)
		users         = identityStore.New(db)
		budgets       = budgetStore.New(db)
		notifications = notificationStore.New(db)
	)

	hub := live.NewHub(live.WithDropHook(metrics.LiveEventDropped))

	identityOpts := []identity.Option{
		identity.WithPublisher(hub),
		identity.WithLogger(log),
		identity.WithResetTTL(cfg.Auth.ResetTTL),
	}

	if cfg.Media.Bucket != "" {
		gcs, err := media.NewGCS(ctx, cfg.Media.Bucket)
		if err != nil {
			return fmt.Errorf("creating media store: %w", err)
		}
		defer gcs.Close()

		identityOpts = append(identityOpts, identity.WithPictures(gcs))
	}

	var (
		accountService      = account.NewService(accounts, hub)
		notificationService = notification.NewService(notifications, hub)
		identityService     = identity.NewService(
			users,
			identity.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
			identity.NewLogMailer(log),
			identityOpts...,
		)
		transactionService = transaction.NewService(transactions,
			transaction.WithPublisher(hub),
			transaction.WithLogger(log),
		)
		budgetService    = budget.NewService(budgets, transactionService, hub)
		reportService    = report.NewService(transactionService, accountService, identityService, loc)
		reconcileService = reconcile.NewService(accounts, transactions, hub, log)
		importService    = importer.NewService()
	)

	transactionService.AddObserver(budget.NewAlerter(budgetService, notificationService, log))

	handlers := pexfinHttp.Handlers{
		Auth:          authHandler.NewHandler(identityService),
		Profile:       profileHandler.NewHandler(identityService),
		Account:       accountHandler.NewHandler(accountService, transactionService, reconcileService),
		Transactions:  txHandler.NewHandler(transactionService),
		Import:        importHandler.NewHandler(importService, transactionService),
		Reports:       reportHandler.NewHandler(reportService),
		Budgets:       budgetHandler.NewHandler(budgetService),
		Notifications: notificationHandler.NewHandler(notificationService),
		Live:          liveHandler.NewHandler(hub, reportService, cfg.Server.AllowedOrigins),
	}

	if cfg.Assistant.APIKey != "" {
		gemini, err := assistant.NewGemini(ctx, cfg.Assistant.APIKey, cfg.Assistant.Model)
		if err != nil {
			return fmt.Errorf("creating assistant client: %w", err)
		}

		assistantOpts := []assistant.Option{
			assistant.WithRate(cfg.Assistant.RatePerMin, cfg.Assistant.Burst),
			assistant.WithLogger(log),
		}
		if cfg.Assistant.WithStatement {
			assistantOpts = append(assistantOpts, assistant.WithStatements(reportService))
		}

		handlers.Assistant = assistantHandler.NewHandler(assistant.NewService(gemini, assistantOpts...))
	} else {
		log.Info().Msg("assistant disabled: no API key configured")
	}

	router := pexfinHttp.New(handlers, pexfinHttp.Options{
		Log:            log,
		Authenticator:  identityService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	if cfg.Reconcile.Enabled {
		scheduler := reconcile.NewScheduler(log, jobTimeout)

		err := scheduler.Add("reconcile", cfg.Reconcile.Schedule, func(ctx context.Context) error {
			_, err := reconcileService.ReconcileAll(ctx)
			return err
		})
		if err != nil {
			return err
		}

		err = scheduler.Add("purge-revoked-tokens", "@daily", func(ctx context.Context) error {
			n, err := users.PurgeRevokedTokens(ctx, time.Now())
			if err == nil && n > 0 {
				log.Info().Int64("purged", n).Msg("revoked tokens purged")
			}

			return err
		})
		if err != nil {
			return err
		}

		go scheduler.Run(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}
