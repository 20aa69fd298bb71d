package aggregates

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

func sampleDocument() *Document {
	d := NewDocument("widget")
	d.ID = uuid.MustParse("6f1c2a52-6a9e-4c43-9d7f-0f4f7d1a2b3c")
	d.PropertyID = "prop-1"
	d.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	d.UpdatedAt = d.CreatedAt
	d.Fields["name"] = "w1"
	d.Fields["part_count"] = int64(1)
	d.Singletons["note"] = nil
	d.Collections["parts"] = []map[string]any{{"label": "a"}}
	d.MarkLoaded("note")
	d.MarkLoaded("parts")
	return d
}

func TestDocumentCloneIsIndependent(t *testing.T) {
	d := sampleDocument()
	c := d.Clone()

	c.Fields["name"] = "changed"
	c.Collections["parts"][0]["label"] = "b"
	c.Collections["parts"] = append(c.Collections["parts"], map[string]any{"label": "c"})
	c.Singletons["note"] = map[string]any{"body": "x"}
	c.Unload("parts")

	if d.Fields["name"] != "w1" {
		t.Fatalf("name: want=w1 got=%v", d.Fields["name"])
	}
	if parts := d.Collections["parts"]; len(parts) != 1 || parts[0]["label"] != "a" {
		t.Fatalf("parts: want=[{label:a}] got=%v", parts)
	}
	if d.Singletons["note"] != nil {
		t.Fatalf("note: want=nil got=%v", d.Singletons["note"])
	}
	if want := []string{"note", "parts"}; !reflect.DeepEqual(d.Loaded(), want) {
		t.Fatalf("original loaded: want=%v got=%v", want, d.Loaded())
	}
	if want := []string{"note"}; !reflect.DeepEqual(c.Loaded(), want) {
		t.Fatalf("clone loaded: want=%v got=%v", want, c.Loaded())
	}
	if c.IsLoaded("parts") {
		t.Fatalf("parts still loaded after Unload")
	}

	var nilDoc *Document
	if nilDoc.Clone() != nil {
		t.Fatalf("clone of nil document is not nil")
	}
}

func TestDocumentMarshalIsFlat(t *testing.T) {
	d := sampleDocument()
	d.Collections["empty"] = nil

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]any{
		"id":          "6f1c2a52-6a9e-4c43-9d7f-0f4f7d1a2b3c",
		"property_id": "prop-1",
		"created_at":  "2024-01-02T03:04:05Z",
		"name":        "w1",
		"part_count":  float64(1),
		"empty":       []any{},
		"parts":       []any{map[string]any{"label": "a"}},
	}
	for k, v := range want {
		if !reflect.DeepEqual(got[k], v) {
			t.Fatalf("%s: want=%v got=%v", k, v, got[k])
		}
	}
	if note, ok := got["note"]; !ok || note != nil {
		t.Fatalf("note: want present null got=%v (present=%v)", note, ok)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := NewError(CodeConflict, " aggregate.create ", "dup", nil)
	if got := err.Error(); got != "aggregate.create: dup (conflict)" {
		t.Fatalf("want=%q got=%q", "aggregate.create: dup (conflict)", got)
	}
	if CodeOf(err) != CodeConflict || !IsCode(err, CodeConflict) {
		t.Fatalf("code: want=conflict got=%s", CodeOf(err))
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("nil code: want empty got=%q", got)
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("wrapping nil must stay nil")
	}
	if got := NewError(CodeNotFound, "", "", nil).Error(); got != "not_found" {
		t.Fatalf("bare code: want=not_found got=%q", got)
	}
}

func TestErrorMatchingAndFields(t *testing.T) {
	base := Conflictf("aggregate.update", "tag_number T-1 already exists")
	wrapped := fmt.Errorf("request failed: %w", base)

	cases := []struct {
		target *Error
		want   bool
	}{
		{&Error{Code: CodeConflict}, true},
		{&Error{Code: CodeConflict, Op: "aggregate.update"}, true},
		{&Error{Code: CodeConflict, Op: "aggregate.create"}, false},
		{&Error{Code: CodeNotFound}, false},
	}
	for _, tc := range cases {
		if got := errors.Is(wrapped, tc.target); got != tc.want {
			t.Fatalf("errors.Is(%s/%s): want=%v got=%v", tc.target.Code, tc.target.Op, tc.want, got)
		}
	}
	if Retryable(wrapped) {
		t.Fatalf("conflict reported as retryable")
	}
	if !Retryable(Wrap(CodeRetryable, "aggregate.tx", errors.New("deadlock"))) {
		t.Fatalf("retryable error not reported as retryable")
	}

	ferr := FieldErrorf("aggregate.payload", "site_details.location", "must be a string")
	if got := FieldOf(ferr); got != "site_details.location" {
		t.Fatalf("field: want=site_details.location got=%q", got)
	}
	if !IsCode(ferr, CodeValidation) {
		t.Fatalf("field error code: want=validation got=%s", CodeOf(ferr))
	}
	if got := FieldOf(base); got != "" {
		t.Fatalf("field of conflict: want empty got=%q", got)
	}
	if got := NewError(CodeInternal, "aggregate.create", "", nil).Error(); got != "aggregate.create (internal)" {
		t.Fatalf("want=%q got=%q", "aggregate.create (internal)", got)
	}
}
