package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/facility-backend/internal/platform/logger"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to redis and verifies the connection with a ping. The
// caller owns the client and must Close it.
func NewClient(ctx context.Context, log *logger.Logger, opts Options) (goredis.UniversalClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis.addr")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.With("service", "RedisClient").Info("redis connected", "addr", addr, "db", opts.DB)
	return rdb, nil
}
