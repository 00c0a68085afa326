package model

import (
	"fmt"
	"strings"
)

// TypeID addresses a TypeNode inside its Model arena.
type TypeID int

// NoType marks an absent type reference (no ancestor, no referenced type).
const NoType TypeID = -1

// TypeKind is the role of a persistent type.
type TypeKind uint8

const (
	KindEntity TypeKind = iota
	KindInterface
	KindStructure
)

func (k TypeKind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindInterface:
		return "interface"
	case KindStructure:
		return "structure"
	}
	return fmt.Sprintf("TypeKind(%d)", uint8(k))
}

// ParseTypeKind parses "entity", "interface" or "structure".
func ParseTypeKind(s string) (TypeKind, error) {
	switch strings.ToLower(s) {
	case "entity":
		return KindEntity, nil
	case "interface":
		return KindInterface, nil
	case "structure", "struct":
		return KindStructure, nil
	}
	return 0, fmt.Errorf("unknown type kind %q", s)
}

// InheritanceSchema is the storage strategy of a hierarchy.
type InheritanceSchema uint8

const (
	// ClassTable stores one table per type holding only its declared columns.
	ClassTable InheritanceSchema = iota
	// SingleTable stores the whole hierarchy in the root's table.
	SingleTable
	// ConcreteTable stores one self-sufficient table per concrete type.
	ConcreteTable
)

func (s InheritanceSchema) String() string {
	switch s {
	case ClassTable:
		return "ClassTable"
	case SingleTable:
		return "SingleTable"
	case ConcreteTable:
		return "ConcreteTable"
	}
	return fmt.Sprintf("InheritanceSchema(%d)", uint8(s))
}

// ParseInheritanceSchema accepts the schema names case-insensitively.
// "Default" is an alias for ClassTable.
func ParseInheritanceSchema(s string) (InheritanceSchema, error) {
	switch strings.ToLower(s) {
	case "classtable", "class_table", "default", "":
		return ClassTable, nil
	case "singletable", "single_table":
		return SingleTable, nil
	case "concretetable", "concrete_table":
		return ConcreteTable, nil
	}
	return 0, fmt.Errorf("unknown inheritance schema %q", s)
}

// ValueType is the storage type of a primitive field.
type ValueType uint8

const (
	TypeNone ValueType = iota
	TypeBool
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeString
	TypeGUID
	TypeDateTime
	TypeBytes
)

var valueTypeNames = map[ValueType]string{
	TypeNone:     "none",
	TypeBool:     "bool",
	TypeInt8:     "int8",
	TypeInt16:    "int16",
	TypeInt32:    "int32",
	TypeInt64:    "int64",
	TypeString:   "string",
	TypeGUID:     "guid",
	TypeDateTime: "datetime",
	TypeBytes:    "bytes",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// IsNumeric reports whether t is an integral type usable as an enum base.
func (t ValueType) IsNumeric() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return true
	}
	return false
}

// ParseValueType parses a primitive type name. "int" is an alias for int64.
func ParseValueType(s string) (ValueType, error) {
	s = strings.ToLower(s)
	if s == "int" {
		return TypeInt64, nil
	}
	for t, name := range valueTypeNames {
		if t != TypeNone && name == s {
			return t, nil
		}
	}
	return TypeNone, fmt.Errorf("unknown value type %q", s)
}

// Direction is the sort direction of an index key column.
type Direction uint8

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}
