package aggregates

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type SlotKind string

const (
	SlotSingleton  SlotKind = "singleton"
	SlotCollection SlotKind = "collection"
)

// Slot is a compiled singleton or collection relation of a root.
type Slot struct {
	Name       string
	Kind       SlotKind
	Table      *Table
	ForeignKey string
	Mode       SyncMode
}

// UniqueKey is a compiled secondary unique key. Slot is nil for root keys.
type UniqueKey struct {
	Name   string
	Slot   *Slot
	Column string
	Scope  KeyScope
}

// Counters is a compiled CounterSpec with Where values coerced to column types.
type Counters struct {
	Slot   *Slot
	Fields []CounterField
}

// Type is the compiled, read-only handle for one aggregate shape.
type Type struct {
	Name string
	Root *Table

	singletons  []*Slot
	collections []*Slot
	slots       map[string]*Slot
	required    []string
	enums       map[string][]string
	filters     map[string]bool
	uniqueKeys  []UniqueKey
	counters    *Counters
	derived     map[string]bool
}

func (t *Type) Singletons() []*Slot  { return t.singletons }
func (t *Type) Collections() []*Slot { return t.collections }
func (t *Type) UniqueKeys() []UniqueKey {
	return t.uniqueKeys
}
func (t *Type) Counters() *Counters { return t.counters }
func (t *Type) Required() []string  { return t.required }

func (t *Type) Slot(name string) (*Slot, bool) {
	s, ok := t.slots[name]
	return s, ok
}

func (t *Type) Singleton(name string) (*Slot, bool) {
	s, ok := t.slots[name]
	if !ok || s.Kind != SlotSingleton {
		return nil, false
	}
	return s, true
}

func (t *Type) Collection(name string) (*Slot, bool) {
	s, ok := t.slots[name]
	if !ok || s.Kind != SlotCollection {
		return nil, false
	}
	return s, true
}

// Filterable reports whether column may be used as an equality filter in List.
func (t *Type) Filterable(column string) bool { return t.filters[column] }

// Filters returns filterable columns in sorted order.
func (t *Type) Filters() []string {
	out := make([]string, 0, len(t.filters))
	for c := range t.filters {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CountsSlot reports whether mutations of slot must trigger a counter resync.
func (t *Type) CountsSlot(slot string) bool {
	return t.counters != nil && t.counters.Slot.Name == slot
}

// IsDerived reports whether a root column is maintained by the counter synchronizer.
func (t *Type) IsDerived(column string) bool { return t.derived[column] }

// readOnly reports engine-owned columns of the root (slot == nil) or of a slot.
func (t *Type) readOnly(slot *Slot, column string) bool {
	if column == ColumnID {
		return true
	}
	if slot == nil {
		switch column {
		case ColumnPropertyID, ColumnCreatedAt, ColumnUpdatedAt:
			return true
		}
		return t.derived[column]
	}
	return column == slot.ForeignKey || (slot.Kind == SlotCollection && column == ColumnPosition)
}

// Registry holds every compiled aggregate shape. It is populated at startup and
// only read afterwards.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
	cache *sync.Map
}

func NewRegistry() *Registry {
	return &Registry{types: map[string]*Type{}, cache: &sync.Map{}}
}

// MustRegister registers spec and panics when the shape is malformed.
func (r *Registry) MustRegister(spec TypeSpec) *Type {
	t, err := r.Register(spec)
	if err != nil {
		panic(err)
	}
	return t
}

// Register compiles and validates spec. All problems found are reported together.
func (r *Registry) Register(spec TypeSpec) (*Type, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, errors.New("register aggregate: missing type name")
	}
	r.mu.RLock()
	_, dup := r.types[name]
	r.mu.RUnlock()
	if dup {
		return nil, fmt.Errorf("register %s: type already registered", name)
	}

	t, err := compile(name, spec, r.cache)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[name]; ok {
		return nil, fmt.Errorf("register %s: type already registered", name)
	}
	r.types[name] = t
	return t, nil
}

func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[strings.TrimSpace(name)]
	return t, ok
}

// Types returns every registered type sorted by name.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func compile(name string, spec TypeSpec, cache *sync.Map) (*Type, error) {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	root, err := parseTable(spec.Root, cache)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	for _, col := range []string{ColumnID, ColumnPropertyID, ColumnCreatedAt, ColumnUpdatedAt} {
		if _, ok := root.Column(col); !ok {
			fail("root table %s is missing column %s", root.Name, col)
		}
	}

	t := &Type{
		Name:    name,
		Root:    root,
		slots:   map[string]*Slot{},
		enums:   map[string][]string{},
		filters: map[string]bool{},
		derived: map[string]bool{},
	}

	addSlot := func(slotName string, kind SlotKind, model any, fk string, mode SyncMode) *Slot {
		slotName = strings.TrimSpace(slotName)
		if slotName == "" {
			fail("%s slot without a name", kind)
			return nil
		}
		if _, ok := t.slots[slotName]; ok {
			fail("slot %s declared twice", slotName)
			return nil
		}
		if _, ok := root.Column(slotName); ok {
			fail("slot %s collides with a root column", slotName)
			return nil
		}
		tbl, err := parseTable(model, cache)
		if err != nil {
			fail("slot %s: %v", slotName, err)
			return nil
		}
		fk = strings.TrimSpace(fk)
		if fk == "" {
			fail("slot %s has no foreign key to the root", slotName)
			return nil
		}
		col, ok := tbl.Column(fk)
		if !ok {
			fail("slot %s: foreign key column %s not found on %s", slotName, fk, tbl.Name)
			return nil
		}
		if !col.NotNull {
			fail("slot %s: foreign key column %s must be NOT NULL", slotName, fk)
		}
		if _, ok := tbl.Column(ColumnID); !ok {
			fail("slot %s: table %s is missing column id", slotName, tbl.Name)
		}
		if kind == SlotCollection {
			if pos, ok := tbl.Column(ColumnPosition); !ok || !pos.IsInteger() {
				fail("slot %s: collection table %s needs an integer position column", slotName, tbl.Name)
			}
		}
		s := &Slot{Name: slotName, Kind: kind, Table: tbl, ForeignKey: fk, Mode: mode}
		t.slots[slotName] = s
		return s
	}

	for _, ss := range spec.Singletons {
		if s := addSlot(ss.Name, SlotSingleton, ss.Model, ss.ForeignKey, ""); s != nil {
			t.singletons = append(t.singletons, s)
		}
	}
	for _, cs := range spec.Collections {
		mode := cs.Mode
		if mode == "" {
			mode = SyncReplace
		}
		if mode != SyncReplace {
			fail("collection %s: sync mode %q is not supported", cs.Name, mode)
			continue
		}
		if s := addSlot(cs.Name, SlotCollection, cs.Model, cs.ForeignKey, mode); s != nil {
			t.collections = append(t.collections, s)
		}
	}

	if spec.Counters != nil {
		t.counters = compileCounters(t, *spec.Counters, fail)
	}

	for _, col := range spec.Required {
		if _, ok := root.Column(col); !ok || t.readOnly(nil, col) {
			fail("required column %s is not a writable root column", col)
			continue
		}
		t.required = append(t.required, col)
	}
	for _, col := range spec.Filters {
		if _, ok := root.Column(col); !ok {
			fail("filter column %s not found on root", col)
			continue
		}
		t.filters[col] = true
	}
	for key, values := range spec.Enums {
		col, ok := t.lookupColumn(key)
		if !ok {
			fail("enum column %s not found", key)
			continue
		}
		if !col.IsString() {
			fail("enum column %s must be a string column", key)
			continue
		}
		if len(values) == 0 {
			fail("enum column %s has no allowed values", key)
			continue
		}
		t.enums[key] = append([]string(nil), values...)
	}

	for _, uk := range spec.UniqueKeys {
		scope := uk.Scope
		if scope == "" {
			scope = ScopeTenant
		}
		if scope != ScopeTenant && scope != ScopeGlobal {
			fail("unique key %s: unknown scope %q", uk.Name, scope)
			continue
		}
		key := UniqueKey{Name: strings.TrimSpace(uk.Name), Column: strings.TrimSpace(uk.Column), Scope: scope}
		if key.Name == "" {
			key.Name = key.Column
		}
		if uk.Slot == "" {
			if _, ok := root.Column(key.Column); !ok {
				fail("unique key %s: column %s not found on root", key.Name, key.Column)
				continue
			}
		} else {
			s, ok := t.Singleton(uk.Slot)
			if !ok {
				fail("unique key %s: %s is not a singleton slot", key.Name, uk.Slot)
				continue
			}
			if _, ok := s.Table.Column(key.Column); !ok {
				fail("unique key %s: column %s not found on slot %s", key.Name, key.Column, uk.Slot)
				continue
			}
			key.Slot = s
		}
		t.uniqueKeys = append(t.uniqueKeys, key)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

func compileCounters(t *Type, spec CounterSpec, fail func(string, ...any)) *Counters {
	slot, ok := t.Collection(spec.Collection)
	if !ok {
		fail("counters: %s is not a collection slot", spec.Collection)
		return nil
	}
	if len(spec.Fields) == 0 {
		fail("counters: no fields declared")
		return nil
	}
	out := &Counters{Slot: slot}
	for _, f := range spec.Fields {
		col, ok := t.Root.Column(f.Field)
		if !ok || !col.IsInteger() {
			fail("counters: %s must be an integer root column", f.Field)
			continue
		}
		where := make(map[string]any, len(f.Where))
		for k, v := range f.Where {
			wc, ok := slot.Table.Column(k)
			if !ok {
				fail("counters: %s filters on unknown column %s.%s", f.Field, slot.Name, k)
				continue
			}
			cv, err := wc.Coerce(v)
			if err != nil {
				fail("counters: %s: %v", f.Field, err)
				continue
			}
			where[k] = cv
		}
		t.derived[f.Field] = true
		out.Fields = append(out.Fields, CounterField{Field: f.Field, Where: where})
	}
	return out
}

// lookupColumn resolves "column" on the root or "slot.column" on a slot.
func (t *Type) lookupColumn(key string) (Column, bool) {
	slotName, col, nested := strings.Cut(key, ".")
	if !nested {
		return t.Root.Column(key)
	}
	s, ok := t.slots[slotName]
	if !ok {
		return Column{}, false
	}
	return s.Table.Column(col)
}
