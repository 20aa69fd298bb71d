package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsSQLite(t *testing.T) {
	t.Setenv("FACILITY_DB_DRIVER", "sqlite")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, CacheNone, cfg.Cache.Mode)
	require.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	require.True(t, cfg.DB.AutoMigrate)
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, "facility-backend", cfg.Otel.ServiceName)
}

func TestLoadConfigPostgresNeedsDSN(t *testing.T) {
	t.Setenv("FACILITY_DB_DRIVER", "postgres")
	t.Setenv("FACILITY_DB_DSN", "")

	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for postgres without dsn")
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
http:
  addr: ":9000"
  cors_origins: ["https://ops.example.com"]
db:
  driver: sqlite
  dsn: "file:facility.db"
cache:
  mode: memory
  ttl: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("FACILITY_HTTP_ADDR", ":9100")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.HTTP.Addr)
	require.Equal(t, []string{"https://ops.example.com"}, cfg.HTTP.CORSOrigins)
	require.Equal(t, "sqlite", cfg.DB.Driver)
	require.Equal(t, "file:facility.db", cfg.DB.DSN)
	require.Equal(t, CacheMemory, cfg.Cache.Mode)
	require.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			HTTP:  HTTPConfig{Addr: ":8080"},
			DB:    DBConfig{Driver: "sqlite"},
			Cache: CacheConfig{Mode: CacheNone},
		}
	}
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }, true},
		{"postgres with dsn", func(c *Config) { c.DB.Driver = "postgres"; c.DB.DSN = "postgres://x" }, false},
		{"redis without addr", func(c *Config) { c.Cache.Mode = CacheRedis }, true},
		{"redis with addr", func(c *Config) { c.Cache.Mode = CacheRedis; c.Redis.Addr = "localhost:6379" }, false},
		{"unknown cache", func(c *Config) { c.Cache.Mode = "disk" }, true},
		{"blank addr", func(c *Config) { c.HTTP.Addr = " " }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("want err=%v got=%v", tc.wantErr, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList([]string{"a, b", "", " c "})
	want := []string{"a", "b", "c"}
	require.Equal(t, want, got)
}
