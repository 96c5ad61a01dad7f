package redis

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// RedisInternal wraps the client shared by the rate limiter, the term id
// cache and the risk-analysis queue
type RedisInternal struct {
	Redis *redis.Client
}

// Options selects the server. Empty fields fall back to REDIS_ADDR and
// REDIS_PASSWORD.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisInternal connects and pings. Without an explicit address it tries
// the compose service name first and then localhost.
func NewRedisInternal(ctx context.Context, opts Options) (*RedisInternal, error) {
	if opts.Password == "" {
		opts.Password = os.Getenv("REDIS_PASSWORD")
	}
	if opts.Addr == "" {
		opts.Addr = os.Getenv("REDIS_ADDR")
	}

	addrs := []string{opts.Addr}
	if opts.Addr == "" {
		addrs = []string{"redis:6379", "localhost:6379"}
	}

	var lastErr error
	for _, addr := range addrs {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: opts.Password,
			DB:       opts.DB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			_ = rdb.Close()
			lastErr = err
			continue
		}
		return &RedisInternal{Redis: rdb}, nil
	}
	return nil, fmt.Errorf("connecting to Redis: %w", lastErr)
}

// Ping checks the connection
func (r *RedisInternal) Ping(ctx context.Context) error {
	return r.Redis.Ping(ctx).Err()
}

// Close releases the client
func (r *RedisInternal) Close() error {
	return r.Redis.Close()
}
