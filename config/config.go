package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"fxwatch/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Rates service
	APIBaseURL     string
	WSURL          string
	RequestTimeout time.Duration

	// Conversion defaults
	DefaultFrom      string
	DefaultTo        string
	DebounceInterval time.Duration

	// Background refresh
	PollInterval      time.Duration
	ReconnectDelay    time.Duration
	HeartbeatInterval time.Duration

	// Local store
	DBPath string

	// Quote cache
	CacheBackend  string // "memory" or "redis"
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string // Collect validation errors

	// Rates service
	cfg.APIBaseURL = getEnv("API_BASE_URL", "http://localhost:8080/api/v1")
	if cfg.APIBaseURL == "" {
		errs = append(errs, "API_BASE_URL must be set")
	}
	cfg.WSURL = getEnv("WS_URL", "ws://localhost:8080/ws/rates")
	if cfg.WSURL == "" {
		errs = append(errs, "WS_URL must be set")
	}

	requestTimeoutSeconds := getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 10)
	if requestTimeoutSeconds <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	cfg.RequestTimeout = time.Duration(requestTimeoutSeconds) * time.Second

	// Conversion defaults
	cfg.DefaultFrom = strings.ToUpper(getEnv("DEFAULT_FROM", "USD"))
	cfg.DefaultTo = strings.ToUpper(getEnv("DEFAULT_TO", "KRW"))
	if len(cfg.DefaultFrom) != 3 || len(cfg.DefaultTo) != 3 {
		errs = append(errs, "DEFAULT_FROM and DEFAULT_TO must be 3-letter currency codes")
	}

	debounceMs := getEnvAsInt("DEBOUNCE_MS", 500)
	if debounceMs <= 0 {
		errs = append(errs, "DEBOUNCE_MS must be positive")
	}
	cfg.DebounceInterval = time.Duration(debounceMs) * time.Millisecond

	// Background refresh
	pollSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 30)
	if pollSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	heartbeatSeconds := getEnvAsInt("HEARTBEAT_SECONDS", 4)
	if heartbeatSeconds <= 0 {
		errs = append(errs, "HEARTBEAT_SECONDS must be positive")
	}
	cfg.HeartbeatInterval = time.Duration(heartbeatSeconds) * time.Second

	// Local store
	cfg.DBPath = getEnv("DB_PATH", "./data/fxwatch.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Quote cache
	cfg.CacheBackend = strings.ToLower(getEnv("CACHE_BACKEND", "memory"))
	if cfg.CacheBackend != "memory" && cfg.CacheBackend != "redis" {
		errs = append(errs, "CACHE_BACKEND must be 'memory' or 'redis'")
	}
	cacheTTLSeconds := getEnvAsInt("CACHE_TTL_SECONDS", 3600)
	if cacheTTLSeconds < 0 {
		errs = append(errs, "CACHE_TTL_SECONDS cannot be negative")
	}
	cfg.CacheTTL = time.Duration(cacheTTLSeconds) * time.Second

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	if cfg.CacheBackend == "redis" && cfg.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR must be set when CACHE_BACKEND is 'redis'")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
