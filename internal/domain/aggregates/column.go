package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

type valueKind int

const (
	kindString valueKind = iota + 1
	kindBool
	kindInt
	kindFloat
	kindTime
	kindUUID
	kindJSON
)

func (k valueKind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindBool:
		return "boolean"
	case kindInt:
		return "integer"
	case kindFloat:
		return "number"
	case kindTime:
		return "timestamp"
	case kindUUID:
		return "uuid"
	case kindJSON:
		return "json"
	default:
		return "unknown"
	}
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	jsonType = reflect.TypeOf(datatypes.JSON{})
)

func kindOf(t reflect.Type) (valueKind, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return kindTime, true
	case uuidType:
		return kindUUID, true
	case jsonType:
		return kindJSON, true
	}
	switch t.Kind() {
	case reflect.String:
		return kindString, true
	case reflect.Bool:
		return kindBool, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindInt, true
	case reflect.Float32, reflect.Float64:
		return kindFloat, true
	}
	return 0, false
}

// Column describes one persisted column of a root or slot table.
type Column struct {
	Name    string
	NotNull bool
	kind    valueKind
}

func (c Column) IsInteger() bool { return c.kind == kindInt }
func (c Column) IsString() bool  { return c.kind == kindString }

// Coerce converts a decoded JSON or Go value to the canonical Go value stored in
// the column: string, bool, int64, float64, time.Time (UTC), uuid.UUID or
// datatypes.JSON. nil stays nil unless the column is NOT NULL.
func (c Column) Coerce(v any) (any, error) {
	if v == nil {
		if c.NotNull {
			return nil, fmt.Errorf("%s cannot be null", c.Name)
		}
		return nil, nil
	}
	switch c.kind {
	case kindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case kindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case kindInt:
		switch n := v.(type) {
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == math.Trunc(n) {
				return int64(n), nil
			}
		}
	case kindFloat:
		switch n := v.(type) {
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, nil
			}
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case kindTime:
		switch tv := v.(type) {
		case time.Time:
			return tv.UTC(), nil
		case string:
			if parsed, ok := parseTime(tv); ok {
				return parsed, nil
			}
			return nil, fmt.Errorf("%s: unrecognised timestamp %q", c.Name, tv)
		}
	case kindUUID:
		switch u := v.(type) {
		case uuid.UUID:
			return u, nil
		case string:
			parsed, err := uuid.Parse(strings.TrimSpace(u))
			if err != nil {
				return nil, fmt.Errorf("%s: invalid uuid %q", c.Name, u)
			}
			return parsed, nil
		}
	case kindJSON:
		switch j := v.(type) {
		case datatypes.JSON:
			if !json.Valid(j) {
				return nil, fmt.Errorf("%s: invalid json", c.Name)
			}
			return j, nil
		case json.RawMessage:
			if !json.Valid(j) {
				return nil, fmt.Errorf("%s: invalid json", c.Name)
			}
			return datatypes.JSON(j), nil
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", c.Name, err)
			}
			return datatypes.JSON(raw), nil
		}
	}
	return nil, fmt.Errorf("%s: expected %s, got %T", c.Name, c.kind, v)
}

// Parse converts a query-string value to the column's canonical value.
func (c Column) Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch c.kind {
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: expected boolean, got %q", c.Name, raw)
		}
		return b, nil
	case kindInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: expected integer, got %q", c.Name, raw)
		}
		return i, nil
	case kindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: expected number, got %q", c.Name, raw)
		}
		return f, nil
	case kindJSON:
		return nil, fmt.Errorf("%s: json columns cannot be filtered", c.Name)
	default:
		return c.Coerce(raw)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Table is a parsed gorm model: its table name and persisted columns.
type Table struct {
	Name    string
	model   reflect.Type
	schema  *schema.Schema
	columns map[string]Column
	order   []string
}

func parseTable(model any, cache *sync.Map) (*Table, error) {
	if model == nil {
		return nil, fmt.Errorf("model is nil")
	}
	rt := reflect.TypeOf(model)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model %s is not a struct", rt)
	}
	sch, err := schema.Parse(model, cache, schema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", rt.Name(), err)
	}
	tbl := &Table{
		Name:    sch.Table,
		model:   rt,
		schema:  sch,
		columns: map[string]Column{},
	}
	for _, f := range sch.Fields {
		if f.DBName == "" {
			continue
		}
		kind, ok := kindOf(f.FieldType)
		if !ok {
			return nil, fmt.Errorf("model %s: column %s has unsupported type %s", rt.Name(), f.DBName, f.FieldType)
		}
		tbl.columns[f.DBName] = Column{Name: f.DBName, NotNull: f.NotNull || f.PrimaryKey, kind: kind}
		tbl.order = append(tbl.order, f.DBName)
	}
	return tbl, nil
}

func (t *Table) Column(name string) (Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// Columns returns column names in model declaration order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.order...)
}

// New returns a pointer to a zero model value, suitable for gorm Model/Delete.
func (t *Table) New() any { return reflect.New(t.model).Interface() }

// NewSlice returns a pointer to an empty slice of models, suitable for gorm Find.
func (t *Table) NewSlice() any { return reflect.New(reflect.SliceOf(t.model)).Interface() }

// Rows flattens a *[]Model produced by NewSlice into column maps.
func (t *Table) Rows(slicePtr any) []map[string]any {
	rv := reflect.ValueOf(slicePtr)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	out := make([]map[string]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, t.rowMap(rv.Index(i)))
	}
	return out
}

func (t *Table) rowMap(rv reflect.Value) map[string]any {
	ctx := context.Background()
	row := make(map[string]any, len(t.order))
	for _, name := range t.order {
		f := t.schema.LookUpField(name)
		if f == nil {
			continue
		}
		row[name] = canonical(f.ReflectValueOf(ctx, rv))
	}
	return row
}

func canonical(v reflect.Value) any {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Type() {
	case timeType:
		return v.Interface().(time.Time).UTC()
	case uuidType, jsonType:
		return v.Interface()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	}
	return v.Interface()
}
