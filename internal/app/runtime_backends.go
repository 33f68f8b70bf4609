package app

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/cache"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/config"
)

// newCacheBackend selects the configured cache backend, falling back to
// the in-memory cache when Redis is unreachable so the dashboard still
// starts. The memory cache is returned separately when active so the
// runtime can drive its GC sweep.
func newCacheBackend(cfg *config.Config, logger *zap.Logger) (cache.Store, *cache.MemoryCache, func() error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Cache.Backend), "redis") {
		redisCache, err := newRedisCacheFromConfig(cfg)
		if err != nil {
			logger.Warn("failed to initialize redis cache; falling back to in-memory cache", zap.Error(err))
		} else {
			return redisCache, nil, redisCache.Close
		}
	}

	memory := cache.NewMemoryCache(cfg.Cache.Freshness)
	return memory, memory, nil
}

func newRedisCacheFromConfig(cfg *config.Config) (*cache.RedisCache, error) {
	var redisClient redis.UniversalClient
	if strings.EqualFold(cfg.Cache.RedisMode, "sentinel") {
		redisClient = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.Cache.RedisMasterSet,
			SentinelAddrs: cfg.Cache.RedisSentinelAddrs,
			Password:      cfg.Cache.RedisPassword,
			DB:            cfg.Cache.RedisDB,
		})
	} else {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	return cache.NewRedisCache(redisClient, cache.RedisCacheConfig{
		Namespace: cfg.Cache.Namespace,
		Freshness: cfg.Cache.Freshness,
	}), nil
}
