package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/facility-backend/internal/data/aggregates"
	"github.com/yungbote/facility-backend/internal/data/db"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/observability"
	"github.com/yungbote/facility-backend/internal/platform/logger"
)

func wireCache(log *logger.Logger, cfg Config, reg *domainagg.Registry, rdb goredis.UniversalClient) (aggregates.DocumentCache, error) {
	switch cfg.Cache.Mode {
	case CacheMemory:
		log.Info("Document cache: memory", "ttl", cfg.Cache.TTL)
		return aggregates.NewMemoryCache(cfg.Cache.TTL), nil
	case CacheRedis:
		log.Info("Document cache: redis", "ttl", cfg.Cache.TTL, "prefix", cfg.Redis.Prefix)
		c, err := aggregates.NewRedisCache(log, rdb, reg, cfg.Redis.Prefix, cfg.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("init redis cache: %w", err)
		}
		return c, nil
	default:
		return aggregates.NewNoopCache(), nil
	}
}

func wireRepos(log *logger.Logger, dbs *db.DatabaseService, reg *domainagg.Registry, cache aggregates.DocumentCache, m *observability.Metrics) *aggregates.Repository {
	log.Info("Wiring repos...")
	return aggregates.NewRepository(aggregates.RepositoryDeps{
		Base: aggregates.BaseDeps{
			DB:    dbs.DB(),
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(m),
		},
		Registry: reg,
		Cache:    cache,
	})
}
