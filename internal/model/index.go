package model

import (
	"fmt"
	"strings"

	"github.com/roach88/polyindex/internal/predicate"
)

// KeyField is one key field of an index definition.
type KeyField struct {
	Field     string
	Direction Direction
}

// IndexDef is a declared index as produced by the definition layer.
type IndexDef struct {
	Name           string
	Primary        bool
	KeyFields      []KeyField
	IncludedFields []string
	Unique         bool
	Clustered      bool
	FillFactor     int

	// Filter, when set, makes the index partial.
	Filter *predicate.Lambda
}

// KeyFieldNames returns the key field names in order.
func (d IndexDef) KeyFieldNames() []string {
	names := make([]string, len(d.KeyFields))
	for i, k := range d.KeyFields {
		names[i] = k.Field
	}
	return names
}

// Attributes are the kind flags of an index.
type Attributes uint16

const (
	AttrPrimary Attributes = 1 << iota
	AttrSecondary
	AttrUnique
	AttrClustered
	AttrAbstract
	AttrPartial
)

// Has reports whether all bits of flag are set.
func (a Attributes) Has(flag Attributes) bool { return a&flag == flag }

func (a Attributes) String() string {
	var parts []string
	names := []struct {
		flag Attributes
		name string
	}{
		{AttrPrimary, "primary"},
		{AttrSecondary, "secondary"},
		{AttrUnique, "unique"},
		{AttrClustered, "clustered"},
		{AttrAbstract, "abstract"},
		{AttrPartial, "partial"},
	}
	for _, n := range names {
		if a.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// IndexKind is the materialization of an index.
type IndexKind uint8

const (
	IndexReal IndexKind = iota
	IndexTyped
	IndexFiltered
	IndexJoin
	IndexUnion
	IndexView
)

func (k IndexKind) String() string {
	switch k {
	case IndexReal:
		return "real"
	case IndexTyped:
		return "typed"
	case IndexFiltered:
		return "filter"
	case IndexJoin:
		return "join"
	case IndexUnion:
		return "union"
	case IndexView:
		return "view"
	}
	return fmt.Sprintf("IndexKind(%d)", uint8(k))
}

// Composition is the kind-specific payload of an index.
//
// This is a sealed interface: Stored, Typed, Filtered, Joined, Union and
// View are the only implementations.
type Composition interface {
	composition()
	Kind() IndexKind
}

// Stored marks a physically backed index.
type Stored struct{}

// Typed injects the discriminator column into a real index's rows.
type Typed struct{}

// Filtered restricts rows to those whose concrete type is in Types.
type Filtered struct {
	Types []TypeID
}

// Joined reassembles a row from several underlying indexes.
type Joined struct {
	Map []ValueColumnMapping
}

// ValueColumnMapping selects value columns of one underlying index.
// Source is the underlying ordinal, Columns are ordinals into that index's
// value columns.
type ValueColumnMapping struct {
	Source  int
	Columns []int
}

// Union stacks the rows of its underlying indexes.
type Union struct{}

// View re-projects one underlying index. Select maps each output column
// (key columns then value columns) to an ordinal of the underlying row.
type View struct {
	Select []int
}

func (Stored) composition()   {}
func (Typed) composition()    {}
func (Filtered) composition() {}
func (Joined) composition()   {}
func (Union) composition()    {}
func (View) composition()     {}

func (Stored) Kind() IndexKind   { return IndexReal }
func (Typed) Kind() IndexKind    { return IndexTyped }
func (Filtered) Kind() IndexKind { return IndexFiltered }
func (Joined) Kind() IndexKind   { return IndexJoin }
func (Union) Kind() IndexKind    { return IndexUnion }
func (View) Kind() IndexKind     { return IndexView }

// KeyColumn is an index key column with its direction.
type KeyColumn struct {
	Column    *Column
	Direction Direction
}

// Index describes a real or virtual index visible on ReflectedType.
type Index struct {
	Name       string
	ShortName  string
	Attributes Attributes
	FillFactor int

	Composition Composition

	KeyColumns      []KeyColumn
	IncludedColumns []*Column
	ValueColumns    []*Column

	ReflectedType TypeID
	DeclaringType TypeID

	// SharedWith lists further implementors whose rows a shared-table index
	// declared for an interface also stores.
	SharedWith []TypeID

	// DeclaringIndex is the index itself for real indexes and the real
	// index ultimately composed for virtual ones.
	DeclaringIndex *Index

	// InheritedFrom is the ancestor or interface index a real index was
	// cloned from; nil for locally declared ones.
	InheritedFrom *Index

	Underlying []*Index

	Filter *PartialFilter

	def *IndexDef
}

// NewIndex creates an index with the given payload. Real indexes declare
// themselves.
func NewIndex(reflected TypeID, attrs Attributes, comp Composition) *Index {
	ix := &Index{
		Attributes:    attrs,
		Composition:   comp,
		ReflectedType: reflected,
		DeclaringType: reflected,
	}
	if comp.Kind() == IndexReal {
		ix.DeclaringIndex = ix
	}
	return ix
}

func (ix *Index) String() string { return ix.Name }

// Kind returns the materialization kind.
func (ix *Index) Kind() IndexKind { return ix.Composition.Kind() }

func (ix *Index) IsReal() bool      { return ix.Kind() == IndexReal }
func (ix *Index) IsVirtual() bool   { return ix.Kind() != IndexReal }
func (ix *Index) IsPrimary() bool   { return ix.Attributes.Has(AttrPrimary) }
func (ix *Index) IsSecondary() bool { return ix.Attributes.Has(AttrSecondary) }
func (ix *Index) IsUnique() bool    { return ix.Attributes.Has(AttrUnique) }
func (ix *Index) IsClustered() bool { return ix.Attributes.Has(AttrClustered) }
func (ix *Index) IsAbstract() bool  { return ix.Attributes.Has(AttrAbstract) }
func (ix *Index) IsPartial() bool   { return ix.Attributes.Has(AttrPartial) }

// Declarers returns DeclaringType followed by SharedWith.
func (ix *Index) Declarers() []TypeID {
	return append([]TypeID{ix.DeclaringType}, ix.SharedWith...)
}

// SetClustered flips the clustered bit.
func (ix *Index) SetClustered(on bool) {
	if on {
		ix.Attributes |= AttrClustered
	} else {
		ix.Attributes &^= AttrClustered
	}
}

// Def returns the definition a real index was built from, if any.
func (ix *Index) Def() *IndexDef { return ix.def }

// SetDef records the definition a real index was built from.
func (ix *Index) SetDef(d *IndexDef) { ix.def = d }

// Columns returns the row layout: key columns followed by value columns.
func (ix *Index) Columns() []*Column {
	cols := make([]*Column, 0, len(ix.KeyColumns)+len(ix.ValueColumns))
	for _, k := range ix.KeyColumns {
		cols = append(cols, k.Column)
	}
	return append(cols, ix.ValueColumns...)
}

// KeyColumnNames returns the names of the key columns.
func (ix *Index) KeyColumnNames() []string {
	names := make([]string, len(ix.KeyColumns))
	for i, k := range ix.KeyColumns {
		names[i] = k.Column.Name
	}
	return names
}

// ValueColumnNames returns the names of the value columns.
func (ix *Index) ValueColumnNames() []string {
	names := make([]string, len(ix.ValueColumns))
	for i, c := range ix.ValueColumns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the row layout contains a column named name.
func (ix *Index) HasColumn(name string) bool {
	for _, c := range ix.Columns() {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Lineage returns the originally declared index this one derives from:
// it follows DeclaringIndex and InheritedFrom links to their end.
func (ix *Index) Lineage() *Index {
	cur := ix
	if cur.DeclaringIndex != nil {
		cur = cur.DeclaringIndex
	}
	for cur.InheritedFrom != nil {
		cur = cur.InheritedFrom
	}
	return cur
}

// FilterTypes returns the type filter of a Filtered index.
func (ix *Index) FilterTypes() []TypeID {
	if f, ok := ix.Composition.(Filtered); ok {
		return f.Types
	}
	return nil
}

// ValueColumnsMap returns the column map of a Join index.
func (ix *Index) ValueColumnsMap() []ValueColumnMapping {
	if j, ok := ix.Composition.(Joined); ok {
		return j.Map
	}
	return nil
}

// SelectColumns returns the ordinal remapping of a View index.
func (ix *Index) SelectColumns() []int {
	if v, ok := ix.Composition.(View); ok {
		return v.Select
	}
	return nil
}

// Walk visits ix and its underlying indexes depth-first, each once.
func (ix *Index) Walk(visit func(*Index)) {
	seen := make(map[*Index]bool)
	var walk func(*Index)
	walk = func(cur *Index) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		visit(cur)
		for _, u := range cur.Underlying {
			walk(u)
		}
	}
	walk(ix)
}
