package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/handler/api"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/handler/webhook"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/middleware"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/router"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/routes"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/service"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/storage"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// ==========================================================================
	// Record storage
	// ==========================================================================

	var records storage.RecordStore
	if cfg.Storage.Provider == "postgres" {
		logger.Info("Connecting to database...")
		sqlDB, err := sql.Open("pgx", cfg.Storage.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer sqlDB.Close()

		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}

		logger.Info("Running database migrations...")
		if err := internal.RunMigrations(sqlDB); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Database migrations completed successfully")

		pool, err := pgxpool.New(ctx, cfg.Storage.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		records = storage.NewPostgresStore(pool)
	} else {
		records, err = storage.NewRecordStore(storage.Config{
			Provider:  cfg.Storage.Provider,
			LocalPath: cfg.Storage.LocalPath,
			RedisURL:  cfg.Storage.RedisURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize record store: %w", err)
		}
	}
	logger.Info("Record store initialized", "provider", cfg.Storage.Provider)

	// ==========================================================================
	// Payment provider and services
	// ==========================================================================

	var provider billing.Provider
	if cfg.Stripe.SecretKey != "" {
		provider, err = billing.NewStripeProvider(billing.StripeConfig{
			APIKey:         cfg.Stripe.SecretKey,
			MonthlyPriceID: cfg.Stripe.MonthlyPriceID,
			YearlyPriceID:  cfg.Stripe.YearlyPriceID,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize stripe provider: %w", err)
		}
		logger.Info("Using Stripe payment provider")
	} else {
		provider = billing.NewMockProvider()
		logger.Warn("STRIPE_SECRET_KEY not set, using mock payment provider")
	}

	registry := service.NewRegistry(records, provider, service.PaymentFlowConfig{
		MaxRetries:     cfg.Payment.MaxRetries,
		RetryBaseDelay: cfg.Payment.RetryBaseDelay,
	}, logger)

	// ==========================================================================
	// Handlers
	// ==========================================================================

	quoteHandler := api.NewQuoteHandler()
	subscriptionHandler := api.NewSubscriptionHandler(registry, provider)
	stripeWebhook := webhook.NewStripeHandler(provider, registry, webhook.StripeWebhookConfig{
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})

	// ==========================================================================
	// Router and middleware
	// ==========================================================================

	metrics := middleware.NewMetrics("pitchlink")
	defaultRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer defaultRateLimiter.Stop()
	checkoutRateLimiter := middleware.NewRateLimiter(middleware.CheckoutRateLimiterConfig())
	defer checkoutRateLimiter.Stop()

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		defaultRateLimiter.Middleware,
		router.Logger(logger),
		middleware.WithAccount,
		middleware.WithRequestLogger(logger),
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		QuoteHandler:        quoteHandler,
		SubscriptionHandler: subscriptionHandler,
		RequireAccount:      middleware.RequireAccount,
		CheckoutLimiter:     checkoutRateLimiter.Middleware,
	})
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		StripeHandler: stripeWebhook.HandleWebhook,
	})
	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		MetricsHandler: metrics.Handler(),
		HealthHandler: func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		},
	})

	// ==========================================================================
	// Start server
	// ==========================================================================

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
