package aggregates

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func TestDecodePayloadKeepsAbsentApartFromNull(t *testing.T) {
	typ := mustWidget(t)
	body := `{"name":"w1","kind":null,"note":null,"parts":[{"label":"a","done":true},{"label":"b"}]}`

	p, err := DecodePayload(typ, []byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, ok := p.Fields["kind"]; !ok || v != nil {
		t.Fatalf("kind: want explicit null got=%v present=%v", v, ok)
	}
	if p.HasField("code") {
		t.Fatalf("code was absent and must stay absent")
	}
	if !p.HasSingleton("note") || p.Singletons["note"] != nil {
		t.Fatalf("note: want explicit null got=%v", p.Singletons["note"])
	}
	parts := p.Collections["parts"]
	if len(parts) != 2 || parts[0]["done"] != true || parts[1]["label"] != "b" {
		t.Fatalf("parts: got=%v", parts)
	}
	if _, ok := parts[1]["done"]; ok {
		t.Fatalf("absent item column must not be filled in")
	}
}

func TestDecodePayloadNullCollectionClears(t *testing.T) {
	typ := mustWidget(t)
	p, err := DecodePayload(typ, []byte(`{"parts":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	items, ok := p.Collections["parts"]
	if !ok || items == nil || len(items) != 0 {
		t.Fatalf("parts: want present empty list got=%v present=%v", items, ok)
	}
}

func TestDecodePayloadRejectsMalformedBodies(t *testing.T) {
	typ := mustWidget(t)
	cases := map[string]string{
		"not json":          `{`,
		"array body":        `[]`,
		"null body":         `null`,
		"two objects":       `{}{}`,
		"singleton scalar":  `{"note":"x"}`,
		"collection object": `{"parts":{"label":"a"}}`,
		"item scalar":       `{"parts":[1]}`,
		"unknown field":     `{"colour":"red"}`,
		"unknown slot item": `{"parts":[{"colour":"red"}]}`,
		"wrong type":        `{"name":12}`,
		"string for bool":   `{"parts":[{"label":"a","done":"yes"}]}`,
	}
	for name, body := range cases {
		_, err := DecodePayload(typ, []byte(body))
		if !IsCode(err, CodeValidation) {
			t.Fatalf("%s: want validation error got=%v", name, err)
		}
	}
}

func TestNormalizeDropsEngineOwnedColumns(t *testing.T) {
	typ := mustWidget(t)
	in := NewPayload().
		Set("id", uuid.New().String()).
		Set("property_id", "other").
		Set("created_at", "2020-01-01").
		Set("part_count", 99).
		Set("name", "kept").
		SetSingleton("note", map[string]any{"id": "x", "widget_id": "y", "body": "hi"}).
		SetCollection("parts", map[string]any{"id": "x", "widget_id": "y", "position": 7, "label": "a"})

	p, err := typ.Normalize(in)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(p.Fields) != 1 || p.Fields["name"] != "kept" {
		t.Fatalf("fields: got=%v", p.Fields)
	}
	if len(p.Singletons["note"]) != 1 || p.Singletons["note"]["body"] != "hi" {
		t.Fatalf("note: got=%v", p.Singletons["note"])
	}
	if item := p.Collections["parts"][0]; len(item) != 1 || item["label"] != "a" {
		t.Fatalf("part: got=%v", item)
	}
	if len(in.Fields) != 5 {
		t.Fatalf("input payload was modified")
	}
}

func TestNormalizeRejectsSlotKindMismatch(t *testing.T) {
	typ := mustWidget(t)
	_, err := typ.Normalize(NewPayload().SetSingleton("parts", map[string]any{}))
	if !IsCode(err, CodeValidation) {
		t.Fatalf("singleton on collection: got=%v", err)
	}
	_, err = typ.Normalize(NewPayload().SetCollection("note"))
	if !IsCode(err, CodeValidation) {
		t.Fatalf("collection on singleton: got=%v", err)
	}
	_, err = typ.Normalize(NewPayload().SetCollection("parts", nil))
	if !IsCode(err, CodeValidation) {
		t.Fatalf("nil item: got=%v", err)
	}
}

func TestValidateRequiredAndEnums(t *testing.T) {
	typ := mustWidget(t)
	cases := []struct {
		name   string
		p      Payload
		create bool
		ok     bool
	}{
		{"create without name", NewPayload(), true, false},
		{"create blank name", NewPayload().Set("name", "  "), true, false},
		{"create ok", NewPayload().Set("name", "w"), true, true},
		{"update leaves name alone", NewPayload().Set("kind", "small"), false, true},
		{"update clears name", NewPayload().Set("name", nil), false, false},
		{"bad root enum", NewPayload().Set("name", "w").Set("kind", "huge"), true, false},
		{"null enum allowed", NewPayload().Set("name", "w").Set("kind", nil), true, true},
		{"bad item enum", NewPayload().Set("name", "w").SetCollection("parts", map[string]any{"state": "broken"}), true, false},
		{"good item enum", NewPayload().Set("name", "w").SetCollection("parts", map[string]any{"state": "used"}), true, true},
	}
	for _, tc := range cases {
		err := typ.Validate(tc.p, tc.create)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !IsCode(err, CodeValidation) {
			t.Fatalf("%s: want validation error got=%v", tc.name, err)
		}
	}
}

func TestDecodeItem(t *testing.T) {
	typ := mustWidget(t)
	item, err := DecodeItem(typ, "parts", []byte(`{"label":"x","done":false,"state":null}`))
	if err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if item["label"] != "x" || item["done"] != false {
		t.Fatalf("item: got=%v", item)
	}
	if v, ok := item["state"]; !ok || v != nil {
		t.Fatalf("state: want explicit null got=%v", v)
	}
	if err := typ.ValidateItem("parts", map[string]any{"state": "bogus"}); !IsCode(err, CodeValidation) {
		t.Fatalf("validate item: got=%v", err)
	}
	if _, err := DecodeItem(typ, "note", []byte(`{}`)); !IsCode(err, CodeValidation) {
		t.Fatalf("singleton as item slot: got=%v", err)
	}
}

func TestColumnCoerce(t *testing.T) {
	typ := mustWidget(t)
	col := func(tbl *Table, name string) Column {
		c, ok := tbl.Column(name)
		if !ok {
			t.Fatalf("no column %s", name)
		}
		return c
	}
	parts, _ := typ.Collection("parts")
	id := uuid.New()
	stamp := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		c    Column
		in   any
		want any
	}{
		{"int from json number", col(typ.Root, "part_count"), json.Number("4"), int64(4)},
		{"int from whole float", col(typ.Root, "part_count"), float64(3), int64(3)},
		{"bool", col(parts.Table, "done"), true, true},
		{"uuid from string", col(typ.Root, "id"), id.String(), id},
		{"time from rfc3339 offset", col(typ.Root, "created_at"), "2024-03-14T11:30:00+02:00", stamp},
		{"time from date", col(typ.Root, "created_at"), "2024-03-14", time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"nullable string nil", col(typ.Root, "kind"), nil, nil},
	}
	for _, tc := range cases {
		got, err := tc.c.Coerce(tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if gt, ok := got.(time.Time); ok {
			if !gt.Equal(tc.want.(time.Time)) {
				t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, gt)
			}
			continue
		}
		if got != tc.want {
			t.Fatalf("%s: want=%#v got=%#v", tc.name, tc.want, got)
		}
	}

	for name, in := range map[string]any{
		"fractional int": 2.5,
		"string for int": "3",
		"bad uuid":       "nope",
		"bad time":       "yesterday",
	} {
		var c Column
		switch name {
		case "bad uuid":
			c = col(typ.Root, "id")
		case "bad time":
			c = col(typ.Root, "created_at")
		default:
			c = col(typ.Root, "part_count")
		}
		if _, err := c.Coerce(in); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := col(typ.Root, "name").Coerce(nil); err == nil {
		t.Fatalf("not null column accepted nil")
	}
}

func TestColumnCoerceJSON(t *testing.T) {
	c := Column{Name: "extra", kind: kindJSON}
	got, err := c.Coerce([]any{"a.jpg", map[string]any{"n": json.Number("1")}})
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	if string(got.(datatypes.JSON)) != `["a.jpg",{"n":1}]` {
		t.Fatalf("json: got=%s", got)
	}
	if _, err := c.Coerce(json.RawMessage(`{bad`)); err == nil {
		t.Fatalf("invalid raw json accepted")
	}
}

func TestColumnParse(t *testing.T) {
	typ := mustWidget(t)
	count, _ := typ.Root.Column("part_count")
	if v, err := count.Parse(" 12 "); err != nil || v != int64(12) {
		t.Fatalf("parse int: got=%v err=%v", v, err)
	}
	if _, err := count.Parse("twelve"); err == nil || !strings.Contains(err.Error(), "expected integer") {
		t.Fatalf("parse int error: got=%v", err)
	}
	kind, _ := typ.Root.Column("kind")
	if v, err := kind.Parse("small"); err != nil || v != "small" {
		t.Fatalf("parse string: got=%v err=%v", v, err)
	}
}
