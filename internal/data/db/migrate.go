package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/facility-backend/internal/domain/aggregates"
)

// Migrate creates or updates every table of models and the registry indexes.
func Migrate(db *gorm.DB, reg *aggregates.Registry, models ...any) error {
	if err := AutoMigrateAll(db, models...); err != nil {
		return err
	}
	if err := EnsureUniqueIndexes(db, reg); err != nil {
		return err
	}
	return EnsureFilterIndexes(db, reg)
}

// AutoMigrateAll migrates roots before their slots so foreign keys resolve.
func AutoMigrateAll(db *gorm.DB, models ...any) error {
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}

// EnsureUniqueIndexes backs every secondary unique key with a database index.
// Tenant-scoped root keys index (property_id, column). Tenant-scoped singleton
// keys cannot be expressed on the slot table and rely on the write guard alone.
func EnsureUniqueIndexes(db *gorm.DB, reg *aggregates.Registry) error {
	for _, t := range reg.Types() {
		for _, key := range t.UniqueKeys() {
			var table, cols string
			switch {
			case key.Slot == nil && key.Scope == aggregates.ScopeTenant:
				table, cols = t.Root.Name, aggregates.ColumnPropertyID+", "+key.Column
			case key.Slot == nil:
				table, cols = t.Root.Name, key.Column
			case key.Scope == aggregates.ScopeGlobal:
				table, cols = key.Slot.Table.Name, key.Column
			default:
				continue
			}
			name := fmt.Sprintf("uq_%s_%s", table, key.Column)
			if err := db.Exec(fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s);`, name, table, cols)).Error; err != nil {
				return fmt.Errorf("create %s: %w", name, err)
			}
		}
	}
	return nil
}

// EnsureFilterIndexes indexes (property_id, column) for every list filter.
func EnsureFilterIndexes(db *gorm.DB, reg *aggregates.Registry) error {
	for _, t := range reg.Types() {
		for _, col := range t.Filters() {
			name := fmt.Sprintf("idx_%s_%s", t.Root.Name, col)
			stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s, %s);`, name, t.Root.Name, aggregates.ColumnPropertyID, col)
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create %s: %w", name, err)
			}
		}
	}
	return nil
}
