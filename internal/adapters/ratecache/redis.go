package ratecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fxwatch/internal/domain"
	"fxwatch/internal/ports"
)

// Redis is a ports.RateCache backed by a Redis instance, for sharing quotes
// between processes. Entries are JSON-encoded quotes with a server-side TTL.
type Redis struct {
	client *redis.Client
	logger ports.Logger
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Logger   ports.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Redis cache")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		err = fmt.Errorf("failed to ping redis at '%s': %w: %w", cfg.Addr, ports.ErrStoreUnavailable, err)
		cfg.Logger.Error(ctx, err, "Redis cache initialization failed")
		return nil, err
	}
	cfg.Logger.Info(ctx, "Redis cache connected", map[string]interface{}{"addr": cfg.Addr, "db": cfg.DB})
	return &Redis{client: client, logger: cfg.Logger}, nil
}

func quoteKey(pair domain.Pair) string {
	return "fxwatch:rate:" + pair.From + ":" + pair.To
}

// Get returns the cached quote for a pair, or nil on a miss.
func (r *Redis) Get(ctx context.Context, pair domain.Pair) (*domain.RateQuote, error) {
	raw, err := r.client.Get(ctx, quoteKey(pair)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w: %w", ports.ErrQueryFailed, err)
	}
	var quote domain.RateQuote
	if err := json.Unmarshal([]byte(raw), &quote); err != nil {
		// Treat an undecodable entry as a miss; it will be overwritten.
		r.logger.Warn(ctx, "dropping undecodable cached quote", map[string]interface{}{"pair": pair.String()})
		return nil, nil
	}
	return &quote, nil
}

// Set stores a quote under its pair for ttl.
func (r *Redis) Set(ctx context.Context, quote *domain.RateQuote, ttl time.Duration) error {
	if quote == nil || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("redis set failed to encode quote: %w", err)
	}
	if err := r.client.Set(ctx, quoteKey(quote.Pair), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w: %w", ports.ErrUpdateFailed, err)
	}
	return nil
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
