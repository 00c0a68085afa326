package model

import "strings"

// TypeIDFieldName is the name of the system discriminator field every
// hierarchy root and every interface carries.
const TypeIDFieldName = "TypeId"

// TypeNode is one persistent type: an entity, an interface or a structure.
type TypeNode struct {
	ID           TypeID
	Name         string
	Kind         TypeKind
	Abstract     bool
	Materialized bool // interfaces only: backed by a table of their own

	// Hierarchy is set for entities only.
	Hierarchy *Hierarchy

	Ancestor     TypeID
	Descendants  []TypeID // direct descendants, declaration order
	Interfaces   []TypeID // directly implemented (entities) or base (interfaces)
	Implementors []TypeID // interfaces only: direct implementors

	Fields  []*Field  // flattened: inherited first, nested children after parents
	Columns []*Column // one per primitive leaf field, in field order

	IndexDefs       []IndexDef
	Indexes         *IndexSet
	AffectedIndexes []*Index

	// InterfaceMap maps, per implemented interface, an interface field name
	// onto the implementing field name of this type.
	InterfaceMap map[TypeID]map[string]string

	// NonPersistent names members that exist on the type but are not stored.
	NonPersistent []string

	fields  map[string]*Field
	columns map[string]*Column
}

// NewTypeNode creates an empty node. The ID is assigned by Model.AddType.
func NewTypeNode(name string, kind TypeKind) *TypeNode {
	return &TypeNode{
		ID:           NoType,
		Name:         name,
		Kind:         kind,
		Ancestor:     NoType,
		Indexes:      NewIndexSet(),
		InterfaceMap: make(map[TypeID]map[string]string),
		fields:       make(map[string]*Field),
		columns:      make(map[string]*Column),
	}
}

func (t *TypeNode) IsEntity() bool    { return t.Kind == KindEntity }
func (t *TypeNode) IsInterface() bool { return t.Kind == KindInterface }
func (t *TypeNode) IsStructure() bool { return t.Kind == KindStructure }

func (t *TypeNode) String() string { return t.Name }

// AddField appends f and, when f is a primitive leaf, its column.
func (t *TypeNode) AddField(f *Field) {
	t.Fields = append(t.Fields, f)
	t.fields[f.Name] = f
	if f.Column != nil {
		t.Columns = append(t.Columns, f.Column)
		t.columns[f.Column.Name] = f.Column
	}
}

// Field looks a field up by its full dotted name.
func (t *TypeNode) Field(name string) (*Field, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// Column looks a column up by name.
func (t *TypeNode) Column(name string) (*Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// TypeIDColumn returns the discriminator column, or nil for types without one.
func (t *TypeNode) TypeIDColumn() *Column {
	for _, c := range t.Columns {
		if c.System && c.Field.Name == TypeIDFieldName {
			return c
		}
	}
	return nil
}

// KeyColumns returns the primary key columns in field order.
func (t *TypeNode) KeyColumns() []*Column {
	var cols []*Column
	for _, c := range t.Columns {
		if c.PrimaryKey {
			cols = append(cols, c)
		}
	}
	return cols
}

// DeclaresValueColumns reports whether the type declares any column of its
// own besides key and system columns.
func (t *TypeNode) DeclaresValueColumns() bool {
	for _, c := range t.Columns {
		if c.Declared && !c.PrimaryKey && !c.System {
			return true
		}
	}
	return false
}

// IsNonPersistent reports whether name is a declared non-persistent member.
func (t *TypeNode) IsNonPersistent(name string) bool {
	for _, n := range t.NonPersistent {
		if n == name {
			return true
		}
	}
	return false
}

// ImplementingField maps an interface field name onto this type's field
// name. Without an explicit mapping the name is unchanged.
func (t *TypeNode) ImplementingField(iface TypeID, name string) string {
	if m, ok := t.InterfaceMap[iface]; ok {
		if mapped, ok := m[name]; ok {
			return mapped
		}
		// nested paths map through their top-level member
		if head, rest, found := strings.Cut(name, "."); found {
			if mapped, ok := m[head]; ok {
				return mapped + "." + rest
			}
		}
	}
	return name
}

// Field is a persistent member of a type. Primitive leaf fields own one
// column; reference and structure fields own child fields instead.
type Field struct {
	Name string // full dotted path, e.g. "Owner.Id"

	Type       ValueType
	EnumType   string // set for enum fields; Type is the underlying type
	RefType    TypeID // reference fields: referenced entity or interface
	StructType TypeID // structure fields: structure type

	DeclaringType     TypeID
	ExplicitInterface TypeID // explicit interface implementation, or NoType

	Parent   *Field
	Children []*Field
	Column   *Column

	Inherited  bool
	PrimaryKey bool
	System     bool
	Nullable   bool
}

func (f *Field) String() string { return f.Name }

func (f *Field) IsPrimitive() bool  { return f.Column != nil }
func (f *Field) IsReference() bool  { return f.RefType != NoType }
func (f *Field) IsStructure() bool  { return f.StructType != NoType }
func (f *Field) IsEnum() bool       { return f.EnumType != "" }
func (f *Field) IsTypeID() bool     { return f.System && f.Name == TypeIDFieldName }
func (f *Field) IsExplicit() bool   { return f.ExplicitInterface != NoType }
func (f *Field) IsTopLevel() bool   { return f.Parent == nil }
func (f *Field) IsDeclared() bool   { return !f.Inherited }

// Columns returns the columns of f and, recursively, of its children.
func (f *Field) Columns() []*Column {
	if f.Column != nil {
		return []*Column{f.Column}
	}
	var cols []*Column
	for _, c := range f.Children {
		cols = append(cols, c.Columns()...)
	}
	return cols
}

// Column is the relational column backing a primitive field.
type Column struct {
	Name  string
	Field *Field
	Type  ValueType

	PrimaryKey       bool
	System           bool
	Declared         bool
	ExplicitOverride bool
	Nullable         bool

	// DeclaringType is the type whose own storage physically holds the
	// column under ClassTable mapping.
	DeclaringType TypeID
}

func (c *Column) String() string { return c.Name }

// Clone returns a copy renamed to name. The copy keeps the owning field.
func (c *Column) Clone(name string) *Column {
	clone := *c
	clone.Name = name
	return &clone
}

// SameAs reports whether two column objects describe one physical column:
// same name declared by the same type.
func (c *Column) SameAs(other *Column) bool {
	if c == other {
		return true
	}
	return c.Name == other.Name && c.DeclaringType == other.DeclaringType
}

// Hierarchy is a tree of entities sharing a root and a storage strategy.
type Hierarchy struct {
	Root   TypeID
	Schema InheritanceSchema
	Key    KeyDescriptor
	Types  []TypeID // pre-order, root first
}

// Contains reports whether id belongs to the hierarchy.
func (h *Hierarchy) Contains(id TypeID) bool {
	for _, t := range h.Types {
		if t == id {
			return true
		}
	}
	return false
}

// KeyDescriptor describes the hierarchy's primary key.
type KeyDescriptor struct {
	Fields    []string
	Generator string

	// Discriminators maps each type of the hierarchy to its stored TypeId.
	Discriminators map[TypeID]int
}
