package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"fxwatch/config"
	"fxwatch/internal/adapters/feed"
	"fxwatch/internal/adapters/logger"
	"fxwatch/internal/adapters/ratecache"
	"fxwatch/internal/adapters/ratesapi"
	"fxwatch/internal/adapters/sqlite"
	"fxwatch/internal/alert"
	"fxwatch/internal/app"
	"fxwatch/internal/ports"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Local Store (Database Adapter)
	store, err := sqlite.NewStore(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize local store")
		log.Fatalf("FATAL: Failed to initialize local store: %v", err) // Also log to stderr
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing local store")
		}
	}()

	// 4. Initialize Rates API Client
	apiClient, err := ratesapi.New(ratesapi.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
		Logger:  appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize rates API client")
		log.Fatalf("FATAL: Failed to initialize rates API client: %v", err)
	}

	// 5. Initialize Quote Cache
	var cache ports.RateCache
	switch cfg.CacheBackend {
	case "redis":
		redisCache, err := ratecache.NewRedis(context.Background(), ratecache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Logger:   appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Redis cache")
			log.Fatalf("FATAL: Failed to initialize Redis cache: %v", err)
		}
		defer redisCache.Close()
		cache = redisCache
	default:
		cache = ratecache.NewMemory()
	}
	source := ratecache.NewCachedSource(apiClient, cache, cfg.CacheTTL, appLogger)

	// 6. Initialize Rate Feed
	rateFeed, err := feed.New(feed.Config{
		URL:               cfg.WSURL,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ReconnectDelay:    cfg.ReconnectDelay,
		Logger:            appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize rate feed")
		log.Fatalf("FATAL: Failed to initialize rate feed: %v", err)
	}

	// 7. Initialize Alert Manager
	alertManager, err := alert.NewManager(context.Background(), store, source, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize alert manager")
		log.Fatalf("FATAL: Failed to initialize alert manager: %v", err)
	}

	// 8. Initialize Application Service
	watchService, err := app.NewWatchService(cfg, appLogger, source, rateFeed, alertManager)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize watch service")
		log.Fatalf("FATAL: Failed to initialize watch service: %v", err)
	}
	appLogger.Info(context.Background(), "Watch service initialized")

	// 9. Start the Service
	if err := watchService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Watch service exited with error")
		log.Fatalf("FATAL: Watch service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
