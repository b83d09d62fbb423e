package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	api "sustainly-backend/cmd/api"
	authdomain "sustainly-backend/internal/auth/domain"
	authRepo "sustainly-backend/internal/auth/repository"
	authUsecase "sustainly-backend/internal/auth/usecase"
	historyCache "sustainly-backend/internal/history/cache"
	historydomain "sustainly-backend/internal/history/domain"
	historyRepo "sustainly-backend/internal/history/repository"
	productdomain "sustainly-backend/internal/product/domain"
	productRepo "sustainly-backend/internal/product/repository"
	"sustainly-backend/pkg/config"
	"sustainly-backend/pkg/database"
	"sustainly-backend/pkg/logger"
	"sustainly-backend/pkg/metrics"
	"sustainly-backend/pkg/sse"
)

func main() {
	// Load configuration
	cfg := config.Load()

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer appLog.Sync()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		appLog.Fatal("Failed to connect to database", "error", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.RefreshToken{}, &historydomain.HistoryRecord{}, &productdomain.ProductScore{}); err != nil {
		appLog.Fatal("Failed to migrate database", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	historyRepository := historyRepo.NewHistoryRepository(db)
	scoreRepository := productRepo.NewProductScoreRepository(db)

	// History cache: shared Redis when configured, otherwise per process
	var cache historyCache.Cache
	if cfg.RedisAddr != "" {
		rdb, err := historyCache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			appLog.Fatal("Failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		}
		defer rdb.Close()
		cache = historyCache.NewRedisCache(rdb, cfg.HistoryCacheTTL)
		appLog.Info("History cache backed by redis", "addr", cfg.RedisAddr)
	} else {
		cache = historyCache.NewMemoryCache(cfg.HistoryCacheTTL)
	}

	m := metrics.New()
	sseManager := sse.NewManager(appLog)

	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)

	// Initialize HTTP handler
	handler, err := api.NewHandler(authUsecaseInstance, scoreRepository, historyRepository, cache, sseManager, m, cfg, appLog)
	if err != nil {
		appLog.Fatal("Failed to initialize handler", "error", err)
	}

	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		appLog.Fatal("Failed to start server", "error", err)
	}
	appLog.Info("Server stopped")
}
