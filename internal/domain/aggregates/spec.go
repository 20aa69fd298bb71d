package aggregates

// SyncMode selects how a collection slot is reconciled against an update payload.
type SyncMode string

const (
	// SyncReplace deletes every existing row of the slot and inserts the payload items.
	SyncReplace SyncMode = "replace"
	// SyncMergeByKey is reserved for diffing items by a caller supplied business key.
	SyncMergeByKey SyncMode = "merge_by_key"
)

// KeyScope bounds where a secondary unique key must be unique.
type KeyScope string

const (
	ScopeTenant KeyScope = "tenant"
	ScopeGlobal KeyScope = "global"
)

// Engine-owned columns. Payload keys naming them are ignored.
const (
	ColumnID         = "id"
	ColumnPropertyID = "property_id"
	ColumnCreatedAt  = "created_at"
	ColumnUpdatedAt  = "updated_at"
	ColumnPosition   = "position"
)

// TypeSpec is the static description of one aggregate shape. Models are pointers
// to gorm structs; column names are the gorm column names of those structs.
type TypeSpec struct {
	Name string
	Root any

	// Required root columns on create. They may not be cleared by an update.
	Required []string
	// Enums maps "column" (root) or "slot.column" to its allowed values.
	Enums map[string][]string
	// Filters lists indexed root columns usable as equality filters in List.
	Filters []string

	Singletons  []SingletonSpec
	Collections []CollectionSpec
	UniqueKeys  []UniqueKeySpec
	Counters    *CounterSpec
}

type SingletonSpec struct {
	Name       string
	Model      any
	ForeignKey string
}

// CollectionSpec models must carry an integer "position" column; the engine keeps
// payload order in it.
type CollectionSpec struct {
	Name       string
	Model      any
	ForeignKey string
	Mode       SyncMode
}

// UniqueKeySpec declares a secondary unique key on the root (Slot == "") or on a
// singleton slot.
type UniqueKeySpec struct {
	Name   string
	Slot   string
	Column string
	Scope  KeyScope
}

// CounterSpec names the collection scanned for derived counters and the root
// fields kept equal to counts over it.
type CounterSpec struct {
	Collection string
	Fields     []CounterField
}

// CounterField counts collection rows matching every Where equality. A nil Where
// counts all rows.
type CounterField struct {
	Field string
	Where map[string]any
}
