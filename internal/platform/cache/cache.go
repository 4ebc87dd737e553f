// Package cache is the process-injected key/value cache used by the loyalty
// services. Keys are plain strings; values are JSON encoded. Invalidate takes a
// glob pattern ("loyalty:program:*") with Redis MATCH semantics.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type Cache interface {
	// Get decodes the cached value into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Invalidate removes every key matching pattern and returns how many were removed.
	Invalidate(ctx context.Context, pattern string) (int, error)
	// Incr bumps a counter; ttl is applied when the counter is created.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// New returns a Redis-backed cache when an address is configured and an
// in-process cache otherwise.
func New(ctx context.Context, log *logger.Logger, cfg Config) (Cache, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		if log != nil {
			log.Info("REDIS_ADDR not set; using in-process cache")
		}
		return NewMemory(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	if log != nil {
		log.Info("Redis cache connected", "addr", addr)
	}
	return NewRedis(rdb, cfg.KeyPrefix), nil
}
