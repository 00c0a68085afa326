package modeldef

import "github.com/roach88/polyindex/internal/model"

// Domain is a complete set of definitions.
type Domain struct {
	Name  string
	Enums []EnumDef
	Types []TypeDef
}

// EnumDef declares an enum and its underlying numeric type.
type EnumDef struct {
	Name       string
	Underlying model.ValueType
	Values     []EnumValue
}

// EnumValue is one enum member.
type EnumValue struct {
	Name  string
	Value int64
}

// Lookup returns the value of member name.
func (e EnumDef) Lookup(name string) (int64, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// TypeDef declares an entity, interface or structure.
type TypeDef struct {
	Name         string
	Kind         model.TypeKind
	Abstract     bool
	Materialized bool

	// Base names the ancestor entity. Roots leave it empty and set Hierarchy.
	Base       string
	Implements []string
	Hierarchy  *HierarchyDef

	Fields        []FieldDef
	Indexes       []model.IndexDef
	NonPersistent []string
}

// HierarchyDef configures a hierarchy on its root.
type HierarchyDef struct {
	Schema    model.InheritanceSchema
	Key       []string
	Generator string
}

// FieldDef declares one field. Exactly one of Type, Enum, Ref and Struct
// describes its shape.
type FieldDef struct {
	Name     string
	Type     model.ValueType
	Enum     string
	Ref      string
	Struct   string
	Nullable bool

	// Key marks interface key fields. Entity keys come from HierarchyDef.
	Key bool

	// Explicit names the interface this field explicitly implements. The
	// resolved field is named "<Explicit>.<Name>".
	Explicit string
}

// Find returns the type definition named name.
func (d *Domain) Find(name string) (*TypeDef, bool) {
	for i := range d.Types {
		if d.Types[i].Name == name {
			return &d.Types[i], true
		}
	}
	return nil, false
}

// FindEnum returns the enum definition named name.
func (d *Domain) FindEnum(name string) (*EnumDef, bool) {
	for i := range d.Enums {
		if d.Enums[i].Name == name {
			return &d.Enums[i], true
		}
	}
	return nil, false
}
