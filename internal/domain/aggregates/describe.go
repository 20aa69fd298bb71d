package aggregates

import "sort"

type TypeDescription struct {
	Name        string              `yaml:"name"`
	Table       string              `yaml:"table"`
	Columns     []string            `yaml:"columns"`
	Required    []string            `yaml:"required,omitempty"`
	Filters     []string            `yaml:"filters,omitempty"`
	Enums       map[string][]string `yaml:"enums,omitempty"`
	Singletons  []SlotDescription   `yaml:"singletons,omitempty"`
	Collections []SlotDescription   `yaml:"collections,omitempty"`
	UniqueKeys  []KeyDescription    `yaml:"unique_keys,omitempty"`
	Counters    *CounterDescription `yaml:"counters,omitempty"`
}

type SlotDescription struct {
	Name       string   `yaml:"name"`
	Table      string   `yaml:"table"`
	ForeignKey string   `yaml:"foreign_key"`
	Mode       SyncMode `yaml:"mode,omitempty"`
	Columns    []string `yaml:"columns"`
}

type KeyDescription struct {
	Name   string   `yaml:"name"`
	Slot   string   `yaml:"slot,omitempty"`
	Column string   `yaml:"column"`
	Scope  KeyScope `yaml:"scope"`
}

type CounterDescription struct {
	Collection string   `yaml:"collection"`
	Fields     []string `yaml:"fields"`
}

// Describe summarizes every registered type for tooling output.
func (r *Registry) Describe() []TypeDescription {
	types := r.Types()
	out := make([]TypeDescription, 0, len(types))
	for _, t := range types {
		out = append(out, t.Describe())
	}
	return out
}

func (t *Type) Describe() TypeDescription {
	d := TypeDescription{
		Name:     t.Name,
		Table:    t.Root.Name,
		Columns:  t.Root.Columns(),
		Required: append([]string(nil), t.required...),
		Filters:  t.Filters(),
	}
	if len(t.enums) > 0 {
		d.Enums = map[string][]string{}
		for k, v := range t.enums {
			d.Enums[k] = append([]string(nil), v...)
		}
	}
	slot := func(s *Slot) SlotDescription {
		return SlotDescription{Name: s.Name, Table: s.Table.Name, ForeignKey: s.ForeignKey, Mode: s.Mode, Columns: s.Table.Columns()}
	}
	for _, s := range t.singletons {
		d.Singletons = append(d.Singletons, slot(s))
	}
	for _, s := range t.collections {
		d.Collections = append(d.Collections, slot(s))
	}
	for _, k := range t.uniqueKeys {
		kd := KeyDescription{Name: k.Name, Column: k.Column, Scope: k.Scope}
		if k.Slot != nil {
			kd.Slot = k.Slot.Name
		}
		d.UniqueKeys = append(d.UniqueKeys, kd)
	}
	if t.counters != nil {
		cd := &CounterDescription{Collection: t.counters.Slot.Name}
		for _, f := range t.counters.Fields {
			cd.Fields = append(cd.Fields, f.Field)
		}
		sort.Strings(cd.Fields)
		d.Counters = cd
	}
	return d
}
