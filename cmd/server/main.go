// Package main is the entry point for the Ventari API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"ventari/internal/domain/auth"
	"ventari/internal/domain/catalogs/product"
	"ventari/internal/domain/catalogs/warehouse"
	"ventari/internal/domain/stock"
	"ventari/internal/infrastructure/cache"
	v1 "ventari/internal/infrastructure/http/v1"
	"ventari/internal/infrastructure/storage/postgres"
	"ventari/internal/infrastructure/storage/postgres/auth_repo"
	"ventari/internal/infrastructure/storage/postgres/catalog_repo"
	"ventari/internal/infrastructure/storage/postgres/stock_repo"
	"ventari/pkg/logger"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting ventari server")

	// --- Database connection ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Availability cache (optional) ---
	var availability *cache.AvailabilityCache
	if redisAddr := getEnv("REDIS_ADDR", ""); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalw("failed to ping redis", "error", err)
		}
		defer redisClient.Close()

		availability = cache.New(redisClient, getEnvDuration("CACHE_TTL", cache.DefaultTTL))
		log.Infow("availability cache enabled", "addr", redisAddr)
	}

	// --- Audit trail ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// --- Catalogs ---
	productRepo := catalog_repo.NewProductRepo(txManager)
	productService := product.NewService(productRepo)

	warehouseRepo := catalog_repo.NewWarehouseRepo(txManager)
	warehouseService := warehouse.NewService(warehouseRepo)

	// --- Stock ledger ---
	stockRepo := stock_repo.NewStockRepo(txManager)
	stockCfg := stock.ServiceConfig{
		Repo:       stockRepo,
		Products:   productService,
		Warehouses: warehouseService,
		TxManager:  txManager,
		Auditor:    auditService,
		MaxRetries: getEnvInt("STOCK_MAX_RETRIES", 3),
	}
	if availability != nil {
		stockCfg.Invalidator = availability
	}
	stockService := stock.NewService(stockCfg)

	// --- Auth ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	userRepo := auth_repo.NewUserRepo(txManager)
	tokenRepo := auth_repo.NewTokenRepo(txManager)
	authService := auth.NewService(
		userRepo,
		tokenRepo,
		txManager,
		jwtService,
		auth.DefaultServiceConfig(),
	)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:             pool,
		Logger:           log,
		JWTValidator:     jwtService,
		AuthService:      authService,
		StockService:     stockService,
		ProductService:   productService,
		WarehouseService: warehouseService,
		Availability:     availability,
		Audit:            auditService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
