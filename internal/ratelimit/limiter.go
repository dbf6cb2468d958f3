// Package ratelimit throttles connection attempts per client IP, either
// through Redis (shared across instances) or an in-process counter cache.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"scholarhub/infrastructure/cache"
)

// Limiter admits or refuses one attempt for a key (a client IP).
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Config bounds attempts per key within a sliding window.
type Config struct {
	Limit  int
	Window time.Duration
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = 30
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	return c
}

// Noop admits everything.
type Noop struct{}

func (Noop) Allow(context.Context, string) bool { return true }

// RedisLimiter counts attempts in Redis with INCR + EXPIRE, so the limit
// holds across hub instances behind one load balancer. Redis failures
// fail open: the hub favors availability over strict limiting.
type RedisLimiter struct {
	rdb *redis.Client
	cfg Config
	log *slog.Logger
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(rdb *redis.Client, cfg Config, logger *slog.Logger) *RedisLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{rdb: rdb, cfg: cfg.withDefaults(), log: logger}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := "ratelimit:conn:" + key

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		l.log.Error("rate limit incr failed", "key", key, "err", err)
		return true
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, redisKey, l.cfg.Window).Err(); err != nil {
			l.log.Error("rate limit expire failed", "key", key, "err", err)
		}
	}
	return count <= int64(l.cfg.Limit)
}

// MemoryLimiter counts attempts in an in-process TTL cache. Suitable for
// single-instance deployments where Redis is not configured.
type MemoryLimiter struct {
	cache *cache.MemCache
	cfg   Config
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(c *cache.MemCache, cfg Config) *MemoryLimiter {
	return &MemoryLimiter{cache: c, cfg: cfg.withDefaults()}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	count := l.cache.Increment("conn:"+key, 1, l.cfg.Window)
	return count <= int64(l.cfg.Limit)
}
