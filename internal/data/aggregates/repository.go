package aggregates

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	"github.com/yungbote/facility-backend/internal/platform/dbctx"
	"github.com/yungbote/facility-backend/internal/platform/logger"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RepositoryDeps struct {
	Base     BaseDeps
	Registry *domainagg.Registry
	Cache    DocumentCache
	// Clock overrides time.Now for created_at/updated_at stamps.
	Clock func() time.Time
	// TxAttempts bounds reruns of a write that hit a lock or serialization
	// failure. Ignored when Base.Runner is set.
	TxAttempts int
}

const defaultTxAttempts = 3

// Repository is the gorm-backed aggregate repository for every registered type.
type Repository struct {
	deps     BaseDeps
	db       *gorm.DB
	log      *logger.Logger
	reg      *domainagg.Registry
	cache    DocumentCache
	clock    func() time.Time
	unique   UniqueGuard
	counters CounterSync
}

var _ domainagg.Repository = (*Repository)(nil)

func NewRepository(deps RepositoryDeps) *Repository {
	custom := deps.Base.Runner != nil
	base := deps.Base.withDefaults()
	if !custom {
		attempts := deps.TxAttempts
		if attempts <= 0 {
			attempts = defaultTxAttempts
		}
		hooks, log := base.Hooks, base.Log
		base.Runner = NewGormTxRunner(base.DB, WithTxRetry(attempts, 15*time.Millisecond, func(attempt int, err error) {
			hooks.IncRetry("aggregate.tx")
			log.Warn("retrying aggregate transaction", "attempt", attempt, "error", err)
		}))
	}
	if deps.Registry == nil {
		deps.Registry = domainagg.NewRegistry()
	}
	if deps.Cache == nil {
		deps.Cache = NewNoopCache()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Repository{
		deps:   base,
		db:     base.DB,
		log:    base.Log.With("repo", "AggregateRepo"),
		reg:    deps.Registry,
		cache:  deps.Cache,
		clock:  deps.Clock,
		unique: NewUniqueGuard(base.DB),
	}
}

func (r *Repository) Contract() domainagg.Contract {
	return domainagg.RepositoryContract
}

// now returns the write timestamp at the precision every supported database keeps.
func (r *Repository) now() time.Time {
	return r.clock().UTC().Truncate(time.Microsecond)
}

func (r *Repository) resolve(op, typeName, tenantID string) (*domainagg.Type, error) {
	t, ok := r.reg.Lookup(typeName)
	if !ok {
		return nil, domainagg.Validationf(op, "unknown aggregate type %q", typeName)
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, domainagg.Validationf(op, "property_id is required")
	}
	return t, nil
}

func spanAttrs(typeName, tenantID string, id uuid.UUID) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("aggregate.type", typeName),
		attribute.String("aggregate.property_id", tenantID),
	}
	if id != uuid.Nil {
		attrs = append(attrs, attribute.String("aggregate.id", id.String()))
	}
	return attrs
}

// lockRoot loads the root row under a row lock and verifies tenant ownership.
func lockRoot(tx *gorm.DB, op string, t *domainagg.Type, tenantID string, id uuid.UUID) error {
	q := tx.Where("id = ? AND property_id = ?", id, tenantID)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	if err := q.Take(t.Root.New()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainagg.NotFoundf(op, "%s %s not found", t.Name, id)
		}
		return err
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, typeName, tenantID string, p domainagg.Payload) (*domainagg.Document, error) {
	const op = "aggregate.create"
	var id uuid.UUID
	err := executeWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		t, err := r.resolve(op, typeName, tenantID)
		if err != nil {
			return err
		}
		np, err := t.Normalize(p)
		if err != nil {
			return err
		}
		if err := t.Validate(np, true); err != nil {
			return err
		}
		tx := dbc.DB(r.db)
		id = uuid.New()
		if err := r.unique.Enforce(dbc, t, tenantID, id, np); err != nil {
			return err
		}

		now := r.now()
		row := cloneValues(np.Fields)
		row[domainagg.ColumnID] = id
		row[domainagg.ColumnPropertyID] = tenantID
		row[domainagg.ColumnCreatedAt] = now
		row[domainagg.ColumnUpdatedAt] = now
		if err := tx.Model(t.Root.New()).Create(row).Error; err != nil {
			return err
		}

		for _, s := range t.Singletons() {
			values := np.Singletons[s.Name]
			if values == nil {
				continue
			}
			if err := insertSlotRow(tx, s, id, values, 0); err != nil {
				return err
			}
		}
		for _, s := range t.Collections() {
			for i, item := range np.Collections[s.Name] {
				if err := insertSlotRow(tx, s, id, item, i); err != nil {
					return err
				}
			}
		}
		if _, err := r.counters.Resync(tx, t, id); err != nil {
			return err
		}
		return nil
	}, spanAttrs(typeName, tenantID, uuid.Nil)...)
	if err != nil {
		return nil, err
	}
	r.log.Debug("aggregate created", "type", typeName, "property_id", tenantID, "id", id)
	return r.Get(ctx, typeName, tenantID, id)
}

func (r *Repository) Get(ctx context.Context, typeName, tenantID string, id uuid.UUID) (*domainagg.Document, error) {
	key := DocumentKey(typeName, tenantID, id)
	gen := r.cache.Generation(ctx, key)
	if doc, ok := r.cache.Get(ctx, key); ok {
		requeried, err := r.loadUnloaded(ctx, typeName, tenantID, doc)
		if err != nil {
			return nil, err
		}
		if !requeried {
			return doc, nil
		}
		// Re-queried slots must come from the same version as the cached part.
		if r.cache.Generation(ctx, key) == gen {
			r.cache.Fill(ctx, key, gen, doc)
			return doc, nil
		}
		gen = r.cache.Generation(ctx, key)
	}
	doc, err := r.load(ctx, typeName, tenantID, id)
	if err != nil {
		return nil, err
	}
	r.cache.Fill(ctx, key, gen, doc)
	return doc, nil
}

func (r *Repository) load(ctx context.Context, typeName, tenantID string, id uuid.UUID) (*domainagg.Document, error) {
	const op = "aggregate.get"
	var doc *domainagg.Document
	err := executeRead(ctx, r.deps, op, func(dbc dbctx.Context) error {
		t, err := r.resolve(op, typeName, tenantID)
		if err != nil {
			return err
		}
		db := dbc.DB(r.db)
		dest := t.Root.NewSlice()
		if err := db.Where("id = ? AND property_id = ?", id, tenantID).Limit(1).Find(dest).Error; err != nil {
			return err
		}
		rows := t.Root.Rows(dest)
		if len(rows) == 0 {
			return domainagg.NotFoundf(op, "%s %s not found", t.Name, id)
		}
		doc = documentFromRow(t, rows[0])
		return hydrate(db, t, []*domainagg.Document{doc})
	}, spanAttrs(typeName, tenantID, id)...)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// loadUnloaded queries the slots a cached document does not carry. It reports
// whether any slot had to be read.
func (r *Repository) loadUnloaded(ctx context.Context, typeName, tenantID string, doc *domainagg.Document) (bool, error) {
	const op = "aggregate.get"
	t, ok := r.reg.Lookup(typeName)
	if !ok {
		return false, nil
	}
	missing := unloadedSlots(t, doc)
	if len(missing) == 0 {
		return false, nil
	}
	err := executeRead(ctx, r.deps, op, func(dbc dbctx.Context) error {
		return hydrateSlots(dbc.DB(r.db), []*domainagg.Document{doc}, missing)
	}, spanAttrs(typeName, tenantID, doc.ID)...)
	if err != nil {
		return false, err
	}
	r.log.Debug("cached aggregate completed", "type", typeName, "id", doc.ID, "slots", len(missing))
	return true, nil
}

func (r *Repository) List(ctx context.Context, typeName, tenantID string, q domainagg.ListQuery) (domainagg.ListResult, error) {
	const op = "aggregate.list"
	var out domainagg.ListResult
	err := executeRead(ctx, r.deps, op, func(dbc dbctx.Context) error {
		t, err := r.resolve(op, typeName, tenantID)
		if err != nil {
			return err
		}
		if q.Skip < 0 {
			return domainagg.Validationf(op, "skip must be >= 0")
		}
		limit := q.Limit
		switch {
		case limit < 0:
			return domainagg.Validationf(op, "limit must be >= 0")
		case limit == 0:
			limit = domainagg.DefaultListLimit
		case limit > domainagg.MaxListLimit:
			limit = domainagg.MaxListLimit
		}
		filters, err := listFilters(op, t, q.Filters)
		if err != nil {
			return err
		}

		db := dbc.DB(r.db)
		scoped := func() *gorm.DB {
			s := db.Model(t.Root.New()).Where("property_id = ?", tenantID)
			for _, f := range filters {
				if f.value == nil {
					s = s.Where(f.column + " IS NULL")
				} else {
					s = s.Where(f.column+" = ?", f.value)
				}
			}
			return s
		}

		var total int64
		if err := scoped().Count(&total).Error; err != nil {
			return err
		}
		dest := t.Root.NewSlice()
		if err := scoped().
			Order(domainagg.ColumnCreatedAt + " DESC").
			Order(domainagg.ColumnID).
			Offset(q.Skip).
			Limit(limit).
			Find(dest).Error; err != nil {
			return err
		}
		rows := t.Root.Rows(dest)
		docs := make([]*domainagg.Document, 0, len(rows))
		for _, row := range rows {
			docs = append(docs, documentFromRow(t, row))
		}
		if err := hydrate(db, t, docs); err != nil {
			return err
		}
		out = domainagg.ListResult{Items: docs, Total: total, Skip: q.Skip, Limit: limit}
		return nil
	}, spanAttrs(typeName, tenantID, uuid.Nil)...)
	if err != nil {
		return domainagg.ListResult{}, err
	}
	return out, nil
}

type listFilter struct {
	column string
	value  any
}

func listFilters(op string, t *domainagg.Type, in map[string]any) ([]listFilter, error) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]listFilter, 0, len(keys))
	for _, k := range keys {
		if !t.Filterable(k) {
			return nil, domainagg.Validationf(op, "%s cannot be filtered on %s", t.Name, k)
		}
		col, _ := t.Root.Column(k)
		var (
			v   any
			err error
		)
		if s, ok := in[k].(string); ok {
			v, err = col.Parse(s)
		} else if in[k] != nil {
			v, err = col.Coerce(in[k])
		}
		if err != nil {
			return nil, domainagg.Validationf(op, "filter %v", err)
		}
		out = append(out, listFilter{column: k, value: v})
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, typeName, tenantID string, id uuid.UUID, p domainagg.Payload) (*domainagg.Document, error) {
	const op = "aggregate.update"
	err := executeWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		t, err := r.resolve(op, typeName, tenantID)
		if err != nil {
			return err
		}
		np, err := t.Normalize(p)
		if err != nil {
			return err
		}
		if err := t.Validate(np, false); err != nil {
			return err
		}
		tx := dbc.DB(r.db)
		if err := lockRoot(tx, op, t, tenantID, id); err != nil {
			return err
		}
		if err := r.unique.Enforce(dbc, t, tenantID, id, np); err != nil {
			return err
		}

		updates := cloneValues(np.Fields)
		updates[domainagg.ColumnUpdatedAt] = r.now()
		if err := tx.Table(t.Root.Name).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		for _, s := range t.Singletons() {
			values, present := np.Singletons[s.Name]
			if !present {
				continue
			}
			if err := writeSingleton(tx, s, id, values); err != nil {
				return err
			}
		}
		resync := false
		for _, s := range t.Collections() {
			items, present := np.Collections[s.Name]
			if !present {
				continue
			}
			if err := replaceCollection(tx, s, id, items); err != nil {
				return err
			}
			resync = resync || t.CountsSlot(s.Name)
		}
		if resync {
			if _, err := r.counters.Resync(tx, t, id); err != nil {
				return err
			}
		}
		return nil
	}, spanAttrs(typeName, tenantID, id)...)
	if err != nil {
		return nil, err
	}
	r.evict(ctx, typeName, tenantID, id)
	return r.Get(ctx, typeName, tenantID, id)
}

func (r *Repository) Delete(ctx context.Context, typeName, tenantID string, id uuid.UUID) error {
	const op = "aggregate.delete"
	err := executeWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		t, err := r.resolve(op, typeName, tenantID)
		if err != nil {
			return err
		}
		tx := dbc.DB(r.db)
		if err := lockRoot(tx, op, t, tenantID, id); err != nil {
			return err
		}
		for _, s := range t.Singletons() {
			if err := deleteSlotRows(tx, s, id); err != nil {
				return err
			}
		}
		for _, s := range t.Collections() {
			if err := deleteSlotRows(tx, s, id); err != nil {
				return err
			}
		}
		return tx.Where("id = ? AND property_id = ?", id, tenantID).Delete(t.Root.New()).Error
	}, spanAttrs(typeName, tenantID, id)...)
	if err != nil {
		return err
	}
	r.evict(ctx, typeName, tenantID, id)
	r.log.Debug("aggregate deleted", "type", typeName, "property_id", tenantID, "id", id)
	return nil
}

func (r *Repository) Resync(ctx context.Context, typeName, tenantID string, id uuid.UUID) (*domainagg.Document, error) {
	const op = "aggregate.resync"
	err := executeWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		t, err := r.resolve(op, typeName, tenantID)
		if err != nil {
			return err
		}
		if t.Counters() == nil {
			return domainagg.Validationf(op, "%s has no derived counters", t.Name)
		}
		tx := dbc.DB(r.db)
		if err := lockRoot(tx, op, t, tenantID, id); err != nil {
			return err
		}
		_, err = r.counters.Resync(tx, t, id)
		return err
	}, spanAttrs(typeName, tenantID, id)...)
	if err != nil {
		return nil, err
	}
	r.evict(ctx, typeName, tenantID, id)
	return r.Get(ctx, typeName, tenantID, id)
}

func (r *Repository) evict(ctx context.Context, typeName, tenantID string, id uuid.UUID) {
	r.cache.Delete(ctx, DocumentKey(typeName, tenantID, id))
}
