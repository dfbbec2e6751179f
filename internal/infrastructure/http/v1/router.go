// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"ventari/internal/domain/auth"
	"ventari/internal/domain/catalogs/product"
	"ventari/internal/domain/catalogs/warehouse"
	"ventari/internal/domain/stock"
	"ventari/internal/infrastructure/cache"
	"ventari/internal/infrastructure/http/v1/handlers"
	"ventari/internal/infrastructure/http/v1/middleware"
	"ventari/internal/infrastructure/storage/postgres"
	"ventari/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// StockService for stock mutations and ledger reads
	StockService *stock.Service

	// ProductService and WarehouseService for the catalogs
	ProductService   *product.Service
	WarehouseService *warehouse.Service

	// Availability is the optional read-through cache for per-product stock
	Availability *cache.AvailabilityCache

	// Audit serves the audit trail of mutating operations
	Audit handlers.AuditReader
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	healthHandler.RegisterRoutes(router.Group("/health"))

	baseHandler := handlers.NewBaseHandler()

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		// Public auth endpoints (login, refresh)
		publicAuth := apiV1.Group("/auth")

		// Everything else requires a valid token
		protected := apiV1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)
		authHandler.RegisterRoutes(publicAuth, protected.Group("/auth"))

		// Corrections, transfers and breakdowns change recorded stock levels;
		// cashiers only post entries through /stock/record.
		mutate := middleware.RequireRole(string(auth.RoleAdmin), string(auth.RoleManager))

		stockHandler := handlers.NewStockHandler(baseHandler, cfg.StockService, cfg.Availability)
		stockHandler.RegisterRoutes(protected, mutate)

		products := protected.Group("/products")
		productHandler := handlers.NewProductHandler(baseHandler, cfg.ProductService)
		productHandler.RegisterRoutes(products, mutate)
		stockHandler.RegisterBreakdownRoute(products, mutate)

		warehouseHandler := handlers.NewWarehouseHandler(baseHandler, cfg.WarehouseService)
		warehouseHandler.RegisterRoutes(protected.Group("/warehouses"), mutate)

		// Audit trail is an admin surface only.
		auditHandler := handlers.NewAuditHandler(baseHandler, cfg.Audit)
		auditHandler.RegisterRoutes(protected.Group("/audit"), middleware.RequireRole(string(auth.RoleAdmin)))
	}

	return router
}
