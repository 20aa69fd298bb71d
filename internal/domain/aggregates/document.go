package aggregates

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Document is a hydrated aggregate: the root columns plus every slot.
//
// A singleton mapped to nil has no row. A slot that is not marked loaded has not
// been read yet; it is not the same thing as an empty slot.
type Document struct {
	Type       string
	ID         uuid.UUID
	PropertyID string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Fields      map[string]any
	Singletons  map[string]map[string]any
	Collections map[string][]map[string]any

	loaded map[string]bool
}

func NewDocument(typeName string) *Document {
	return &Document{
		Type:        typeName,
		Fields:      map[string]any{},
		Singletons:  map[string]map[string]any{},
		Collections: map[string][]map[string]any{},
		loaded:      map[string]bool{},
	}
}

func (d *Document) MarkLoaded(slot string) {
	if d.loaded == nil {
		d.loaded = map[string]bool{}
	}
	d.loaded[slot] = true
}

// Unload forgets slot so the next read re-queries it.
func (d *Document) Unload(slot string) {
	delete(d.loaded, slot)
	delete(d.Singletons, slot)
	delete(d.Collections, slot)
}

func (d *Document) IsLoaded(slot string) bool { return d.loaded[slot] }

// Loaded returns the names of loaded slots, sorted.
func (d *Document) Loaded() []string {
	out := make([]string, 0, len(d.loaded))
	for s, ok := range d.loaded {
		if ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy whose maps and item slices can be modified independently.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Fields = cloneRow(d.Fields)
	c.Singletons = make(map[string]map[string]any, len(d.Singletons))
	for k, v := range d.Singletons {
		c.Singletons[k] = cloneRow(v)
	}
	c.Collections = make(map[string][]map[string]any, len(d.Collections))
	for k, items := range d.Collections {
		cp := make([]map[string]any, len(items))
		for i, it := range items {
			cp[i] = cloneRow(it)
		}
		c.Collections[k] = cp
	}
	c.loaded = make(map[string]bool, len(d.loaded))
	for k, v := range d.loaded {
		c.loaded[k] = v
	}
	return &c
}

func cloneRow(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MarshalJSON renders the document flat: root columns beside id/property_id and
// the timestamps, singletons as object or null, collections as arrays.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+len(d.Singletons)+len(d.Collections)+4)
	for k, v := range d.Fields {
		out[k] = v
	}
	for k, v := range d.Singletons {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	for k, items := range d.Collections {
		if items == nil {
			items = []map[string]any{}
		}
		out[k] = items
	}
	out[ColumnID] = d.ID
	out[ColumnPropertyID] = d.PropertyID
	out[ColumnCreatedAt] = d.CreatedAt
	out[ColumnUpdatedAt] = d.UpdatedAt
	return json.Marshal(out)
}
