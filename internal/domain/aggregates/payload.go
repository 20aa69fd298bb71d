package aggregates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const opPayload = "aggregate.payload"

// Payload is a create or partial-update request for one aggregate.
//
// Presence is carried by map membership, not by zero values:
//   - a key missing from a map is absent and leaves stored data untouched;
//   - a key mapped to nil is an explicit clear (column set to NULL, singleton row
//     deleted, collection emptied);
//   - any other value replaces (root columns), merges field by field (singletons)
//     or fully replaces the stored rows (collections).
type Payload struct {
	Fields      map[string]any
	Singletons  map[string]map[string]any
	Collections map[string][]map[string]any
}

func NewPayload() Payload {
	return Payload{
		Fields:      map[string]any{},
		Singletons:  map[string]map[string]any{},
		Collections: map[string][]map[string]any{},
	}
}

func (p Payload) Set(column string, v any) Payload {
	if p.Fields == nil {
		p.Fields = map[string]any{}
	}
	p.Fields[column] = v
	return p
}

// SetSingleton records values for a singleton slot; nil clears the slot.
func (p Payload) SetSingleton(slot string, values map[string]any) Payload {
	if p.Singletons == nil {
		p.Singletons = map[string]map[string]any{}
	}
	p.Singletons[slot] = values
	return p
}

// SetCollection records the full item list for a collection slot. A nil or empty
// list clears the collection.
func (p Payload) SetCollection(slot string, items ...map[string]any) Payload {
	if p.Collections == nil {
		p.Collections = map[string][]map[string]any{}
	}
	if items == nil {
		items = []map[string]any{}
	}
	p.Collections[slot] = items
	return p
}

func (p Payload) HasField(column string) bool {
	_, ok := p.Fields[column]
	return ok
}

func (p Payload) HasSingleton(slot string) bool {
	_, ok := p.Singletons[slot]
	return ok
}

func (p Payload) HasCollection(slot string) bool {
	_, ok := p.Collections[slot]
	return ok
}

// Normalize checks every key of p against t and coerces values to the canonical
// column types. Engine-owned columns are dropped. The input is not modified.
func (t *Type) Normalize(p Payload) (Payload, error) {
	out := NewPayload()
	fields, err := t.normalizeRow(nil, t.Root, p.Fields, "")
	if err != nil {
		return Payload{}, err
	}
	out.Fields = fields

	for name, values := range p.Singletons {
		s, err := t.expectSlot(name, SlotSingleton)
		if err != nil {
			return Payload{}, err
		}
		if values == nil {
			out.Singletons[name] = nil
			continue
		}
		row, err := t.normalizeRow(s, s.Table, values, name+".")
		if err != nil {
			return Payload{}, err
		}
		out.Singletons[name] = row
	}

	for name, items := range p.Collections {
		s, err := t.expectSlot(name, SlotCollection)
		if err != nil {
			return Payload{}, err
		}
		rows := make([]map[string]any, 0, len(items))
		for i, item := range items {
			if item == nil {
				return Payload{}, Validationf(opPayload, "%s[%d] must be an object", name, i)
			}
			row, err := t.normalizeRow(s, s.Table, item, fmt.Sprintf("%s[%d].", name, i))
			if err != nil {
				return Payload{}, err
			}
			rows = append(rows, row)
		}
		out.Collections[name] = rows
	}
	return out, nil
}

// NormalizeItem normalizes a single collection item for slot.
func (t *Type) NormalizeItem(slot string, item map[string]any) (map[string]any, error) {
	s, err := t.expectSlot(slot, SlotCollection)
	if err != nil {
		return nil, err
	}
	return t.normalizeRow(s, s.Table, item, slot+".")
}

func (t *Type) expectSlot(name string, kind SlotKind) (*Slot, error) {
	s, ok := t.slots[name]
	if !ok {
		return nil, Validationf(opPayload, "%s has no slot %q", t.Name, name)
	}
	if s.Kind != kind {
		return nil, Validationf(opPayload, "%s.%s is a %s slot", t.Name, name, s.Kind)
	}
	return s, nil
}

func (t *Type) normalizeRow(slot *Slot, tbl *Table, in map[string]any, prefix string) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for key, v := range in {
		if t.readOnly(slot, key) {
			continue
		}
		col, ok := tbl.Column(key)
		if !ok {
			return nil, FieldErrorf(opPayload, prefix+key, "unknown field %s%s", prefix, key)
		}
		cv, err := col.Coerce(v)
		if err != nil {
			return nil, FieldErrorf(opPayload, prefix+key, "%s%v", prefix, err)
		}
		out[key] = cv
	}
	return out, nil
}

// Validate enforces required root fields (on create, or against clearing on
// update) and enumerated values. p must already be normalized.
func (t *Type) Validate(p Payload, create bool) error {
	for _, col := range t.required {
		v, present := p.Fields[col]
		if !present && !create {
			continue
		}
		if isBlank(v) {
			return FieldErrorf(opPayload, col, "missing required field %s", col)
		}
	}

	keys := make([]string, 0, len(t.enums))
	for k := range t.enums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		allowed := t.enums[key]
		slotName, col, nested := strings.Cut(key, ".")
		if !nested {
			if err := checkEnum(key, p.Fields[key], allowed); err != nil {
				return err
			}
			continue
		}
		if row := p.Singletons[slotName]; row != nil {
			if err := checkEnum(key, row[col], allowed); err != nil {
				return err
			}
		}
		for _, item := range p.Collections[slotName] {
			if err := checkEnum(key, item[col], allowed); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateItem enforces enumerated values on one collection item.
func (t *Type) ValidateItem(slot string, item map[string]any) error {
	for key, allowed := range t.enums {
		slotName, col, nested := strings.Cut(key, ".")
		if !nested || slotName != slot {
			continue
		}
		if err := checkEnum(key, item[col], allowed); err != nil {
			return err
		}
	}
	return nil
}

func checkEnum(key string, v any, allowed []string) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return FieldErrorf(opPayload, key, "%s must be one of [%s], got %q", key, strings.Join(allowed, ", "), s)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// DecodePayload decodes a JSON object into a normalized Payload for t, keeping
// the difference between absent keys and explicit nulls.
func DecodePayload(t *Type, raw []byte) (Payload, error) {
	top, err := decodeObject(raw)
	if err != nil {
		return Payload{}, err
	}
	p := NewPayload()
	for key, v := range top {
		s, isSlot := t.slots[key]
		if !isSlot {
			p.Fields[key] = v
			continue
		}
		switch s.Kind {
		case SlotSingleton:
			if v == nil {
				p.Singletons[key] = nil
				continue
			}
			obj, ok := v.(map[string]any)
			if !ok {
				return Payload{}, Validationf(opPayload, "%s must be an object or null", key)
			}
			p.Singletons[key] = obj
		case SlotCollection:
			items, err := toItems(key, v)
			if err != nil {
				return Payload{}, err
			}
			p.Collections[key] = items
		}
	}
	return t.Normalize(p)
}

// DecodeItem decodes one collection item for slot.
func DecodeItem(t *Type, slot string, raw []byte) (map[string]any, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	return t.NormalizeItem(slot, obj)
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var top map[string]any
	if err := dec.Decode(&top); err != nil {
		return nil, Validationf(opPayload, "invalid json body: %v", err)
	}
	if top == nil {
		return nil, Validationf(opPayload, "body must be a json object")
	}
	if dec.More() {
		return nil, Validationf(opPayload, "body must contain a single json object")
	}
	return top, nil
}

func toItems(key string, v any) ([]map[string]any, error) {
	if v == nil {
		return []map[string]any{}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, Validationf(opPayload, "%s must be an array", key)
	}
	items := make([]map[string]any, 0, len(list))
	for i, raw := range list {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, Validationf(opPayload, "%s[%d] must be an object", key, i)
		}
		items = append(items, obj)
	}
	return items, nil
}
