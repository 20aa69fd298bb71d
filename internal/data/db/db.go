package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/facility-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver        string
	DSN           string
	MaxOpenConns  int
	SlowThreshold time.Duration
}

type DatabaseService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewDatabaseService opens the configured store. sqlite is held to a single
// connection so writers queue instead of failing with "database is locked".
func NewDatabaseService(logg *logger.Logger, cfg Config) (*DatabaseService, error) {
	if logg == nil {
		logg = logger.NewNop()
	}
	serviceLog := logg.With("service", "DatabaseService")

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverPostgres
	}
	dsn := strings.TrimSpace(cfg.DSN)

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("db.dsn is required for postgres")
		}
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		if dsn == "" {
			dsn = "file:facility?mode=memory&cache=shared&_foreign_keys=on"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = time.Second
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(serviceLog, slow),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	switch {
	case driver == DriverSQLite:
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	serviceLog.Info("database connected", "driver", driver)
	return &DatabaseService{db: db, log: serviceLog}, nil
}

func (s *DatabaseService) DB() *gorm.DB { return s.db }

func (s *DatabaseService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DatabaseService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormWriter struct {
	log *logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// NewGormLogger routes gorm's slow-query and error output through the service logger.
func NewGormLogger(log *logger.Logger, slow time.Duration) gormLogger.Interface {
	return gormLogger.New(gormWriter{log: log}, gormLogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  gormLogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
