package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/facility-backend/internal/data/db"
)

const envPrefix = "FACILITY"

const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	HTTP    HTTPConfig
	Log     LogConfig
	DB      DBConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Metrics MetricsConfig
	Otel    OtelConfig
}

type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

type LogConfig struct {
	Mode string
}

type DBConfig struct {
	Driver        string
	DSN           string
	MaxOpenConns  int
	SlowThreshold time.Duration
	AutoMigrate   bool
}

type CacheConfig struct {
	Mode string
	TTL  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type MetricsConfig struct {
	Enabled bool
	// Addr serves /metrics on its own listener; empty mounts it on the API router.
	Addr string
}

type OtelConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Endpoint    string
	Insecure    bool
	Headers     string
	SampleRatio float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("log.mode", "development")
	v.SetDefault("db.driver", db.DriverPostgres)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.slow_threshold", time.Second)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("cache.mode", CacheNone)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "facility:doc")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "facility-backend")
	v.SetDefault("otel.environment", "")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.headers", "")
	v.SetDefault("otel.sample_ratio", 0.1)
}

// NewViper returns a viper instance with defaults and FACILITY_* environment
// overrides (dots become underscores, e.g. FACILITY_DB_DSN). A non-empty path
// is read as a config file.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

func LoadConfig(path string) (Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:        v.GetString("http.addr"),
			CORSOrigins: splitList(v.GetStringSlice("http.cors_origins")),
		},
		Log: LogConfig{Mode: v.GetString("log.mode")},
		DB: DBConfig{
			Driver:        strings.ToLower(strings.TrimSpace(v.GetString("db.driver"))),
			DSN:           v.GetString("db.dsn"),
			MaxOpenConns:  v.GetInt("db.max_open_conns"),
			SlowThreshold: v.GetDuration("db.slow_threshold"),
			AutoMigrate:   v.GetBool("db.auto_migrate"),
		},
		Cache: CacheConfig{
			Mode: strings.ToLower(strings.TrimSpace(v.GetString("cache.mode"))),
			TTL:  v.GetDuration("cache.ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Addr:    v.GetString("metrics.addr"),
		},
		Otel: OtelConfig{
			Enabled:     v.GetBool("otel.enabled"),
			ServiceName: v.GetString("otel.service_name"),
			Environment: v.GetString("otel.environment"),
			Endpoint:    v.GetString("otel.endpoint"),
			Insecure:    v.GetBool("otel.insecure"),
			Headers:     v.GetString("otel.headers"),
			SampleRatio: v.GetFloat64("otel.sample_ratio"),
		},
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case db.DriverPostgres:
		if strings.TrimSpace(c.DB.DSN) == "" {
			return fmt.Errorf("db.dsn is required for postgres")
		}
	case db.DriverSQLite:
	default:
		return fmt.Errorf("db.driver must be %s or %s, got %q", db.DriverPostgres, db.DriverSQLite, c.DB.Driver)
	}
	switch c.Cache.Mode {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required when cache.mode=redis")
		}
	default:
		return fmt.Errorf("cache.mode must be none, memory or redis, got %q", c.Cache.Mode)
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("http.addr is required")
	}
	return nil
}

// splitList accepts both YAML lists and a comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
