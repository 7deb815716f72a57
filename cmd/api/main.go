package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civicpay/config"
	"civicpay/internal/adapter/bank"
	httpHandler "civicpay/internal/adapter/http/handler"
	"civicpay/internal/adapter/push"
	pgStorage "civicpay/internal/adapter/storage/postgres"
	redisStorage "civicpay/internal/adapter/storage/redis"
	"civicpay/internal/core/ports"
	"civicpay/internal/service"
	"civicpay/pkg/logger"
)

const janitorInterval = time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Int("port", cfg.Server.Port).
		Msg("Starting CivicPay financial core")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	cardRepo := pgStorage.NewCardRepo(pool)
	qrRepo := pgStorage.NewQrRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	confirmedCache := redisStorage.NewConfirmedCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Bank gateway and cached OAuth token source
	bankClient := bank.NewClient(cfg.Bank, log)
	tokenCache := service.NewTokenCache(bankClient, cfg.Bank.TokenSkew, log)

	// In-process rendezvous between webhooks and verify calls
	notifier := service.NewNotifier(log)
	defer notifier.Close()

	// Push notifications are optional; without credentials the sender
	// stays disabled.
	var pushSender ports.PushSender
	fcmSender, err := push.NewFCMSender(ctx, cfg.Push, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize FCM sender")
	}
	if fcmSender != nil {
		pushSender = fcmSender
		log.Info().Msg("FCM push notifications enabled")
	} else {
		log.Info().Msg("FCM push notifications disabled")
	}

	// Initialize core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	walletSvc := service.NewWalletService(walletRepo, ledgerRepo, transactor, log)
	cardSvc := service.NewCardService(cardRepo, walletRepo, ledgerRepo, transactor, log)
	txSvc := service.NewTransactionService(ledgerRepo, walletRepo, log)
	paymentSvc := service.NewPaymentService(
		qrRepo,
		walletRepo,
		ledgerRepo,
		transactor,
		tokenCache,
		bankClient,
		notifier,
		confirmedCache,
		pushSender,
		cfg.Payment,
		log,
	)

	// Background sweep of stale pending QR requests
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	janitor := service.NewQrJanitor(qrRepo, janitorInterval, cfg.Payment.QrExpiry, log)
	go janitor.Run(janitorCtx)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		CardSvc:        cardSvc,
		TxSvc:          txSvc,
		PaymentSvc:     paymentSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopJanitor()
	log.Info().Msg("Server exited")
}
