package handler

import (
	"civicpay/internal/adapter/http/middleware"
	redisStore "civicpay/internal/adapter/storage/redis"
	"civicpay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	CardSvc        ports.CardService
	TxSvc          ports.TransactionService
	PaymentSvc     ports.PaymentService
	TokenSvc       ports.TokenVerifier
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies PostgreSQL and Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)
	cardHandler := NewCardHandler(deps.CardSvc, deps.WalletSvc)
	txHandler := NewTransactionHandler(deps.TxSvc, deps.WalletSvc)
	paymentHandler := NewPaymentHandler(deps.PaymentSvc, deps.WalletSvc, deps.Logger)

	// --- Public routes (no platform auth) ---
	// The bank's webhook carries no platform credentials.
	r.POST("/payments/webhook", rl("webhook"), paymentHandler.Webhook)

	// --- JWT-authenticated API ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	v1 := r.Group("/api/v1", jwtAuth)

	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl("wallets"), walletHandler.Create)
		wallets.GET("", rl("wallets"), walletHandler.List)
		wallets.GET("/:id", rl("wallets"), walletHandler.Get)
		wallets.POST("/:id/topup", rl("wallets_topup"), walletHandler.TopUp)
		wallets.POST("/:id/transfer", rl("transfers"), walletHandler.Transfer)
		wallets.POST("/:id/suspend", rl("wallets"), walletHandler.Suspend)
		wallets.GET("/:id/cards", rl("cards"), cardHandler.ListByWallet)
		wallets.GET("/:id/transactions", rl("transactions"), txHandler.ListByWallet)
		wallets.GET("/:id/activity", rl("transactions"), txHandler.ListActivity)
	}

	transactions := v1.Group("/transactions")
	{
		transactions.GET("", rl("transactions"), txHandler.List)
		transactions.GET("/:id", rl("transactions"), txHandler.Get)
	}

	cards := v1.Group("/cards")
	{
		cards.POST("", rl("cards"), cardHandler.Issue)
		cards.GET("/:id", rl("cards"), cardHandler.Get)
		cards.POST("/:id/topup", rl("cards"), cardHandler.TopUp)
	}

	payments := v1.Group("/payments")
	{
		payments.POST("/qr", rl("payments_qr"), paymentHandler.CreateQr)
		payments.GET("/:reference/verify", rl("payments_qr"), paymentHandler.Verify)
	}

	return r
}
