package aggregates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// UniqueGuard enforces secondary unique keys inside a write transaction.
//
// On postgres each candidate value is serialized with a transaction-scoped
// advisory lock before the existence check, so two writers racing for the same
// value cannot both pass. sqlite serializes writers on its own.
type UniqueGuard struct {
	db *gorm.DB
}

func NewUniqueGuard(db *gorm.DB) UniqueGuard {
	return UniqueGuard{db: db}
}

func (g UniqueGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// Enforce checks every unique key that p writes. Keys p leaves untouched are
// skipped, as are NULL values. selfID is the root being written and never
// conflicts with itself.
func (g UniqueGuard) Enforce(dbc dbctx.Context, t *domainagg.Type, tenantID string, selfID uuid.UUID, p domainagg.Payload) error {
	type candidate struct {
		key   domainagg.UniqueKey
		value any
	}
	var todo []candidate
	for _, key := range t.UniqueKeys() {
		var (
			v       any
			present bool
		)
		if key.Slot == nil {
			v, present = p.Fields[key.Column]
		} else if row := p.Singletons[key.Slot.Name]; row != nil {
			v, present = row[key.Column]
		}
		if !present || v == nil {
			continue
		}
		todo = append(todo, candidate{key: key, value: v})
	}
	sort.Slice(todo, func(i, j int) bool { return todo[i].key.Name < todo[j].key.Name })

	for _, c := range todo {
		if err := g.Lock(dbc, t, c.key, tenantID, c.value); err != nil {
			return err
		}
		taken, err := g.Taken(dbc, t, c.key, tenantID, c.value, selfID)
		if err != nil {
			return err
		}
		if taken {
			return ConflictError(fmt.Sprintf("%s %s %v already exists", t.Name, c.key.Name, c.value))
		}
	}
	return nil
}

// Lock takes a transaction-scoped advisory lock on (type, key, scope, value).
func (g UniqueGuard) Lock(dbc dbctx.Context, t *domainagg.Type, key domainagg.UniqueKey, tenantID string, value any) error {
	db, err := g.baseDB(dbc)
	if err != nil {
		return err
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return db.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", lockName(t, key, tenantID, value)).Error
}

// Taken reports whether another root already holds value for key.
func (g UniqueGuard) Taken(dbc dbctx.Context, t *domainagg.Type, key domainagg.UniqueKey, tenantID string, value any, selfID uuid.UUID) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	root := t.Root.Name

	var q *gorm.DB
	if key.Slot == nil {
		q = db.Table(root).Where(key.Column+" = ?", value).Where("id <> ?", selfID)
		if key.Scope == domainagg.ScopeTenant {
			q = q.Where("property_id = ?", tenantID)
		}
	} else {
		s := key.Slot
		q = db.Table(s.Table.Name+" AS s").
			Joins(fmt.Sprintf("JOIN %s AS r ON r.id = s.%s", root, s.ForeignKey)).
			Where("s."+key.Column+" = ?", value).
			Where("r.id <> ?", selfID)
		if key.Scope == domainagg.ScopeTenant {
			q = q.Where("r.property_id = ?", tenantID)
		}
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func lockName(t *domainagg.Type, key domainagg.UniqueKey, tenantID string, value any) string {
	scope := "*"
	if key.Scope == domainagg.ScopeTenant {
		scope = strings.TrimSpace(tenantID)
	}
	return fmt.Sprintf("unique:%s:%s:%s:%v", t.Name, key.Name, scope, value)
}
