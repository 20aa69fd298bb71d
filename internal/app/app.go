package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/facility-backend/internal/clients/redis"
	"github.com/yungbote/facility-backend/internal/data/aggregates"
	"github.com/yungbote/facility-backend/internal/data/db"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/domain/facility"
	apphttp "github.com/yungbote/facility-backend/internal/http"
	"github.com/yungbote/facility-backend/internal/observability"
	"github.com/yungbote/facility-backend/internal/platform/logger"
)

const collectorInterval = 15 * time.Second

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.DatabaseService
	Registry *domainagg.Registry
	Metrics  *observability.Metrics
	Redis    goredis.UniversalClient
	Repo     *aggregates.Repository
	Server   *apphttp.Server

	shutdownOtel func(context.Context) error
}

func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg, Registry: facility.NewRegistry()}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Cfg
	shutdown, err := observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Otel.Environment,
		Endpoint:    cfg.Otel.Endpoint,
		Insecure:    cfg.Otel.Insecure,
		Headers:     observability.ParseHeaders(cfg.Otel.Headers),
		SampleRatio: cfg.Otel.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init otel: %w", err)
	}
	a.shutdownOtel = shutdown

	a.DB, err = OpenDatabase(a.Log, cfg)
	if err != nil {
		return err
	}
	if cfg.DB.AutoMigrate {
		a.Log.Info("Migrating schema...")
		if err := db.Migrate(a.DB.DB(), a.Registry, facility.Models()...); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if cfg.Metrics.Enabled {
		a.Metrics = observability.NewMetrics()
	}
	if cfg.Cache.Mode == CacheRedis {
		a.Redis, err = redis.NewClient(ctx, a.Log, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
	}

	cache, err := wireCache(a.Log, cfg, a.Registry, a.Redis)
	if err != nil {
		return err
	}
	a.Repo = wireRepos(a.Log, a.DB, a.Registry, cache, a.Metrics)
	a.Server = apphttp.NewServer(wireRouter(a.Log, cfg, a.Registry, a.Metrics, a.DB, a.Repo))
	return nil
}

// OpenDatabase opens the configured store without migrating it.
func OpenDatabase(log *logger.Logger, cfg Config) (*db.DatabaseService, error) {
	svc, err := db.NewDatabaseService(log, db.Config{
		Driver:        cfg.DB.Driver,
		DSN:           cfg.DB.DSN,
		MaxOpenConns:  cfg.DB.MaxOpenConns,
		SlowThreshold: cfg.DB.SlowThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return svc, nil
}

// Run serves the API, and the metrics listener when one is configured, until
// ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Server.Run(gctx, a.Cfg.HTTP.Addr) })
	if a.Metrics != nil {
		a.Metrics.StartDBCollector(gctx, a.Log, a.DB.DB(), collectorInterval)
		a.Metrics.StartRedisCollector(gctx, a.Log, a.Redis, collectorInterval)
		if a.Cfg.Metrics.Addr != "" {
			g.Go(func() error { return a.Metrics.Serve(gctx, a.Log, a.Cfg.Metrics.Addr) })
		}
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOtel(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
		a.shutdownOtel = nil
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
		a.Redis = nil
	}
	if a.DB != nil {
		_ = a.DB.Close()
		a.DB = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
