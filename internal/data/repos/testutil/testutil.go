package testutil

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/facility-backend/internal/data/db"
	"github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/domain/facility"
	"github.com/yungbote/facility-backend/internal/platform/logger"
)

var (
	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	sqliteSeq atomic.Int64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// Registry returns a freshly compiled facility registry.
func Registry(tb testing.TB) *aggregates.Registry {
	tb.Helper()
	return facility.NewRegistry()
}

// DB returns a migrated database. With TEST_POSTGRES_DSN set every caller shares
// one postgres database and must isolate itself with Tenant(); otherwise each
// call gets a private in-memory sqlite database.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		return postgresDB(tb, dsn)
	}
	return sqliteDB(tb)
}

func postgresDB(tb testing.TB, dsn string) *gorm.DB {
	tb.Helper()
	pgOnce.Do(func() {
		var err error
		pgDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			pgErr = err
			return
		}
		pgErr = db.Migrate(pgDB, facility.NewRegistry(), facility.Models()...)
	})
	if pgErr != nil {
		tb.Fatalf("failed to init test db: %v", pgErr)
	}
	return pgDB
}

func sqliteDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := fmt.Sprintf("file:facility_test_%d_%s?mode=memory&cache=shared&_foreign_keys=on", sqliteSeq.Add(1), uuid.NewString()[:8])
	gdb, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb, facility.NewRegistry(), facility.Models()...); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	return gdb
}

// IsPostgres reports whether gdb talks to postgres.
func IsPostgres(gdb *gorm.DB) bool {
	return gdb != nil && gdb.Dialector.Name() == "postgres"
}

// Tenant returns a property id no other test uses.
func Tenant() string {
	return "prop-" + uuid.NewString()
}

func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

// CountRows counts rows of table matching where.
func CountRows(tb testing.TB, gdb *gorm.DB, table string, where string, args ...any) int64 {
	tb.Helper()
	var n int64
	q := gdb.Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		tb.Fatalf("count %s: %v", table, err)
	}
	return n
}
