package snapshot

import (
	"github.com/roach88/polyindex/internal/model"
)

// Snapshot describes a built model.
type Snapshot struct {
	Domain string `json:"domain"`
	Types  []Type `json:"types"`
}

// Type describes one type's indexes. Structures are omitted.
type Type struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Abstract bool     `json:"abstract,omitempty"`
	Schema   string   `json:"schema,omitempty"`
	Indexes  []Index  `json:"indexes"`
	Affected []string `json:"affected,omitempty"`
}

// Index describes one index and, by name, the indexes it composes.
type Index struct {
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	Attributes  string          `json:"attributes,omitempty"`
	FillFactor  int             `json:"fill_factor,omitempty"`
	Keys        []string        `json:"keys"`
	Included    []string        `json:"included,omitempty"`
	Values      []string        `json:"values,omitempty"`
	Declaring   string          `json:"declaring"`
	SharedWith  []string        `json:"shared_with,omitempty"`
	Underlying  []string        `json:"underlying,omitempty"`
	FilterTypes []string        `json:"filter_types,omitempty"`
	Map         []ColumnMapping `json:"map,omitempty"`
	Select      []int           `json:"select,omitempty"`
	Filter      *Filter         `json:"filter,omitempty"`
}

// ColumnMapping mirrors model.ValueColumnMapping.
type ColumnMapping struct {
	Source  int   `json:"source"`
	Columns []int `json:"columns"`
}

// Filter describes a compiled partial filter.
type Filter struct {
	Expression string   `json:"expression"`
	Fields     []string `json:"fields"`
	Condition  string   `json:"condition"`
}

// Render describes m. Types and indexes keep model order; m should be built.
func Render(m *model.Model) *Snapshot {
	s := &Snapshot{Domain: m.Name, Types: []Type{}}
	for _, t := range m.Types {
		if t.IsStructure() {
			continue
		}
		entry := Type{
			Name:     t.Name,
			Kind:     t.Kind.String(),
			Abstract: t.Abstract,
			Indexes:  []Index{},
		}
		if t.Hierarchy != nil {
			entry.Schema = t.Hierarchy.Schema.String()
		}
		for _, ix := range t.Indexes.All() {
			entry.Indexes = append(entry.Indexes, renderIndex(m, ix))
		}
		for _, ix := range t.AffectedIndexes {
			entry.Affected = append(entry.Affected, ix.Name)
		}
		s.Types = append(s.Types, entry)
	}
	return s
}

func renderIndex(m *model.Model, ix *model.Index) Index {
	out := Index{
		Name:       ix.Name,
		Kind:       ix.Kind().String(),
		Attributes: ix.Attributes.String(),
		FillFactor: ix.FillFactor,
		Keys:       make([]string, len(ix.KeyColumns)),
		Included:   columnNames(ix.IncludedColumns),
		Values:     columnNames(ix.ValueColumns),
		Declaring:  m.NameOf(ix.DeclaringType),
	}
	for i, k := range ix.KeyColumns {
		out.Keys[i] = k.Column.Name + " " + k.Direction.String()
	}
	for _, id := range ix.SharedWith {
		out.SharedWith = append(out.SharedWith, m.NameOf(id))
	}
	for _, u := range ix.Underlying {
		out.Underlying = append(out.Underlying, u.Name)
	}

	switch c := ix.Composition.(type) {
	case model.Filtered:
		for _, id := range c.Types {
			out.FilterTypes = append(out.FilterTypes, m.NameOf(id))
		}
	case model.Joined:
		for _, mp := range c.Map {
			out.Map = append(out.Map, ColumnMapping{Source: mp.Source, Columns: mp.Columns})
		}
	case model.View:
		out.Select = c.Select
	}

	if f := ix.Filter; f != nil {
		rf := &Filter{Expression: f.Expression, Fields: make([]string, len(f.Fields))}
		for i, fld := range f.Fields {
			rf.Fields[i] = fld.Name
		}
		if f.Condition != nil {
			rf.Condition = f.Condition.String()
		}
		out.Filter = rf
	}
	return out
}

func columnNames(cols []*model.Column) []string {
	if len(cols) == 0 {
		return nil
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Find returns the type entry named name.
func (s *Snapshot) Find(name string) (*Type, bool) {
	for i := range s.Types {
		if s.Types[i].Name == name {
			return &s.Types[i], true
		}
	}
	return nil, false
}

// object converts s into the value tree MarshalCanonical accepts. Empty
// optional members are left out, as in the JSON form.
func (s *Snapshot) object() object {
	types := make([]any, len(s.Types))
	for i, t := range s.Types {
		types[i] = t.object()
	}
	return object{"domain": s.Domain, "types": types}
}

func (t Type) object() object {
	indexes := make([]any, len(t.Indexes))
	for i, ix := range t.Indexes {
		indexes[i] = ix.object()
	}
	o := object{"name": t.Name, "kind": t.Kind, "indexes": indexes}
	if t.Abstract {
		o["abstract"] = true
	}
	o.putString("schema", t.Schema)
	o.putStrings("affected", t.Affected)
	return o
}

func (ix Index) object() object {
	o := object{
		"name":      ix.Name,
		"kind":      ix.Kind,
		"keys":      anyStrings(ix.Keys),
		"declaring": ix.Declaring,
	}
	o.putString("attributes", ix.Attributes)
	if ix.FillFactor > 0 {
		o["fill_factor"] = ix.FillFactor
	}
	o.putStrings("included", ix.Included)
	o.putStrings("values", ix.Values)
	o.putStrings("shared_with", ix.SharedWith)
	o.putStrings("underlying", ix.Underlying)
	o.putStrings("filter_types", ix.FilterTypes)
	if len(ix.Map) > 0 {
		maps := make([]any, len(ix.Map))
		for i, mp := range ix.Map {
			maps[i] = object{"source": mp.Source, "columns": anyInts(mp.Columns)}
		}
		o["map"] = maps
	}
	if len(ix.Select) > 0 {
		o["select"] = anyInts(ix.Select)
	}
	if f := ix.Filter; f != nil {
		o["filter"] = object{
			"expression": f.Expression,
			"fields":     anyStrings(f.Fields),
			"condition":  f.Condition,
		}
	}
	return o
}

func (o object) putString(key, v string) {
	if v != "" {
		o[key] = v
	}
}

func (o object) putStrings(key string, v []string) {
	if len(v) > 0 {
		o[key] = anyStrings(v)
	}
}

func anyStrings(v []string) []any {
	out := make([]any, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}

func anyInts(v []int) []any {
	out := make([]any, len(v))
	for i, n := range v {
		out[i] = n
	}
	return out
}
