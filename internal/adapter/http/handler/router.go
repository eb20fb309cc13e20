package handler

import (
	"clinic-wallet-service/config"
	"clinic-wallet-service/internal/adapter/http/middleware"
	redisStore "clinic-wallet-service/internal/adapter/storage/redis"
	"clinic-wallet-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	LedgerSvc      ports.LedgerService
	ReportingSvc   ports.ReportingService
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	TokenSvc       ports.TokenService
	BillingCfg     config.BillingConfig
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

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

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- HMAC-authenticated routes (billing subsystem API) ---
	billingAuth := middleware.BillingAuth(deps.BillingCfg, deps.SigSvc, deps.NonceStore, deps.Logger)
	billingHandler := NewBillingHandler(deps.LedgerSvc)
	billing := v1.Group("/billing", billingAuth)
	{
		billing.POST("/pay", rl("billing"), billingHandler.Pay)
		billing.POST("/refund", rl("billing"), billingHandler.Refund)
	}

	// --- JWT-authenticated routes (front-desk staff) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.LedgerSvc)
	dashboardHandler := NewDashboardHandler(deps.ReportingSvc)

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("", rl("wallets"), walletHandler.Create)
		wallets.GET("", rl("wallets"), walletHandler.List)
		wallets.GET("/:id", rl("wallets"), walletHandler.Get)
		wallets.PUT("/:id", rl("wallets"), walletHandler.UpdateProfile)
		wallets.GET("/:id/balance", rl("wallets"), walletHandler.GetBalance)
		wallets.GET("/:id/transactions", rl("wallets"), walletHandler.ListTransactions)
		wallets.POST("/:id/deposit", rl("wallets"), walletHandler.Deposit)
		wallets.POST("/:id/withdraw", rl("wallets"), walletHandler.Withdraw)
		wallets.POST("/:id/adjustment", rl("wallets"), walletHandler.Adjustment)
		wallets.POST("/:id/activate", rl("wallets"), walletHandler.Activate)
		wallets.POST("/:id/deactivate", rl("wallets"), walletHandler.Deactivate)
	}

	dashboard := v1.Group("/dashboard", jwtAuth)
	{
		dashboard.GET("/stats", rl("dashboard"), dashboardHandler.GetStats)
	}

	return r
}
