package predicate

import (
	"fmt"
	"strconv"
)

// Value is a sealed interface for literal values appearing in filters and
// in the positional rows the compiled conditions are evaluated against.
type Value interface {
	value()
	String() string
}

// Null is the absent value.
type Null struct{}

// Int is a signed integer. Every integral width is carried as int64.
type Int int64

// Str is a string literal.
type Str string

// Bool is a boolean literal.
type Bool bool

// Enum is a named enum member together with its underlying numeric value.
type Enum struct {
	Type  string
	Name  string
	Value int64
}

func (Null) value() {}
func (Int) value()  {}
func (Str) value()  {}
func (Bool) value() {}
func (Enum) value() {}

func (Null) String() string   { return "null" }
func (v Int) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v Str) String() string  { return strconv.Quote(string(v)) }
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }
func (v Enum) String() string {
	if v.Name == "" {
		return fmt.Sprintf("%s(%d)", v.Type, v.Value)
	}
	return v.Type + "." + v.Name
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// CompareValues orders two non-null values of the same family.
// Enums compare by their underlying value and are interchangeable with Int.
func CompareValues(a, b Value) (int, error) {
	if IsNull(a) || IsNull(b) {
		return 0, fmt.Errorf("cannot order null values")
	}
	if ai, ok := integral(a); ok {
		bi, ok := integral(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %s with %s", a, b)
		}
		switch {
		case ai < bi:
			return -1, nil
		case ai > bi:
			return 1, nil
		}
		return 0, nil
	}
	switch av := a.(type) {
	case Str:
		bv, ok := b.(Str)
		if !ok {
			return 0, fmt.Errorf("cannot compare %s with %s", a, b)
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	case Bool:
		bv, ok := b.(Bool)
		if !ok {
			return 0, fmt.Errorf("cannot compare %s with %s", a, b)
		}
		if av == bv {
			return 0, nil
		}
		if !av {
			return -1, nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("unsupported value %T", a)
}

func integral(v Value) (int64, bool) {
	switch n := v.(type) {
	case Int:
		return int64(n), true
	case Enum:
		return n.Value, true
	}
	return 0, false
}
