package facility

import (
	"testing"

	"github.com/yungbote/facility-backend/internal/domain/aggregates"
)

func TestNewRegistryCompilesEveryType(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{TypeIncidentReport, TypeActivity, TypePatrolRound, TypeUtilityPanel, TypeStpLog, TypeProject} {
		if _, ok := reg.Lookup(name); !ok {
			t.Fatalf("type %s not registered", name)
		}
	}
	if got := len(reg.Types()); got != len(Specs()) {
		t.Fatalf("types: want=%d got=%d", len(Specs()), got)
	}
}

func TestModelsCoverEveryTable(t *testing.T) {
	reg := NewRegistry()
	want := 0
	for _, typ := range reg.Types() {
		want += 1 + len(typ.Singletons()) + len(typ.Collections())
	}
	if got := len(Models()); got != want {
		t.Fatalf("models: want=%d got=%d", want, got)
	}
}

func TestActivityCountersAreDerived(t *testing.T) {
	typ, _ := NewRegistry().Lookup(TypeActivity)
	for _, f := range []string{"total_tasks", "active_tasks", "completed_tasks", "pending_tasks"} {
		if !typ.IsDerived(f) {
			t.Fatalf("%s should be derived", f)
		}
	}
	p, err := typ.Normalize(aggregates.NewPayload().Set("name", "x").Set("total_tasks", 10))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.HasField("total_tasks") {
		t.Fatalf("client supplied counter must be dropped")
	}
}

func TestUtilityPanelKeysAreGlobal(t *testing.T) {
	typ, _ := NewRegistry().Lookup(TypeUtilityPanel)
	keys := typ.UniqueKeys()
	if len(keys) != 2 {
		t.Fatalf("keys: want=2 got=%d", len(keys))
	}
	for _, k := range keys {
		if k.Scope != aggregates.ScopeGlobal {
			t.Fatalf("%s: want global scope got=%s", k.Name, k.Scope)
		}
	}
	if keys[1].Slot == nil || keys[1].Slot.Name != "specifications" {
		t.Fatalf("serial_number must live on specifications")
	}
}
