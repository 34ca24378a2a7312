package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/claimpay/internal/application/services"
	"github.com/DanielPopoola/claimpay/internal/config"
	"github.com/DanielPopoola/claimpay/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/claimpay/internal/infrastructure/validation"
	"github.com/DanielPopoola/claimpay/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/claimpay/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting claim payment service",
		"env", cfg.Primary.Env,
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	claimRepo := postgres.NewClaimRepository(db)
	rateRepo := postgres.NewRateRepository(db)
	calendar := postgres.NewSystemControlRepository(db)
	historyRepo := postgres.NewHistoryRepository(db)
	uow := postgres.NewTransactionCoordinator(db, logger)

	clients := validation.NewClients(cfg, logger)

	registry := services.NewReconciliationRegistry(cfg.Worker.PendingTTL)
	authService := services.NewPaymentAuthorizationService(
		claimRepo,
		services.NewValidationRouter(claimRepo, logger),
		services.NewValidationClients(clients...),
		services.NewRateResolver(rateRepo, cfg.Rates.Currency, cfg.Rates.CacheTTL, logger),
		calendar,
		services.NewTransactionCoordinator(uow, logger),
		registry,
		cfg.Authorization,
		logger,
	)
	reconcileService := services.NewReconciliationService(historyRepo, registry, cfg.Worker.SettleWindow, logger)

	h := handlers.NewHandlers(authService, reconcileService, clients, logger)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      h.Routes(cfg.Server.RequestTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	reconciler := worker.NewReconciler(
		reconcileService,
		registry,
		cfg.Worker.Interval,
		cfg.Worker.BatchSize,
		logger,
	)
	healthMonitor := worker.NewHealthMonitor(clients, cfg.Worker.HealthInterval, logger)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go reconciler.Start(workerCtx)
	go healthMonitor.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// The registry is not persisted; these ids must be reconciled by hand
	// after a restart.
	if n := registry.Len(); n > 0 {
		logger.Warn("exiting with unreconciled authorizations", "count", n)
		for _, p := range registry.Pending(0) {
			logger.Warn("unreconciled authorization",
				"authorization_id", p.AuthorizationID.String(),
				"claim_key", p.Key.String(),
				"occurrence", p.Occurrence,
				"detected_at", p.DetectedAt,
			)
		}
	}

	logger.Info("server exited")
}
