package model

import (
	"fmt"
	"strings"

	"github.com/roach88/polyindex/internal/predicate"
)

// PartialFilter is a compiled partial-index predicate. Fields are the
// referenced fields in ordinal order; Condition addresses them by ordinal.
type PartialFilter struct {
	Index      *Index
	Fields     []*Field
	Condition  Condition
	Expression string // source lambda, for diagnostics and DDL comments
}

// Columns returns the column of each referenced field, in ordinal order.
func (f *PartialFilter) Columns() []*Column {
	cols := make([]*Column, len(f.Fields))
	for i, fld := range f.Fields {
		cols[i] = fld.Column
	}
	return cols
}

// Evaluate applies the condition to a positional row whose slots follow
// Fields.
func (f *PartialFilter) Evaluate(row []predicate.Value) (bool, error) {
	if len(row) != len(f.Fields) {
		return false, fmt.Errorf("filter expects %d slots, got %d", len(f.Fields), len(row))
	}
	return f.Condition.Evaluate(row)
}

// Condition is a compiled, column-positional boolean expression.
//
// This is a sealed interface: SlotTest, NullTest, AllOf, AnyOf and NoneOf
// are the only implementations.
type Condition interface {
	condition()
	Evaluate(row []predicate.Value) (bool, error)
	String() string
}

// Operand is a slot reference or a literal inside a SlotTest.
type Operand struct {
	Slot    int // ordinal into the row; ignored when Literal is set
	Literal predicate.Value
	Type    ValueType
}

// IsLiteral reports whether the operand is a constant.
func (o Operand) IsLiteral() bool { return o.Literal != nil }

func (o Operand) resolve(row []predicate.Value) (predicate.Value, error) {
	if o.Literal != nil {
		return o.Literal, nil
	}
	if o.Slot < 0 || o.Slot >= len(row) {
		return nil, fmt.Errorf("slot %d out of range", o.Slot)
	}
	return row[o.Slot], nil
}

func (o Operand) String() string {
	if o.Literal != nil {
		return o.Literal.String()
	}
	return fmt.Sprintf("$%d", o.Slot)
}

// SlotTest compares two operands. Comparisons involving null are false,
// except == and != against a null literal, which NullTest replaces at
// compile time.
type SlotTest struct {
	Op    predicate.CompareOp
	Left  Operand
	Right Operand
}

// NullTest checks a slot for null (or not null when Negated).
type NullTest struct {
	Slot    int
	Negated bool
}

// AllOf is a conjunction.
type AllOf struct{ Terms []Condition }

// AnyOf is a disjunction.
type AnyOf struct{ Terms []Condition }

// NoneOf negates a single term.
type NoneOf struct{ Term Condition }

func (SlotTest) condition() {}
func (NullTest) condition() {}
func (AllOf) condition()    {}
func (AnyOf) condition()    {}
func (NoneOf) condition()   {}

func (c SlotTest) Evaluate(row []predicate.Value) (bool, error) {
	l, err := c.Left.resolve(row)
	if err != nil {
		return false, err
	}
	r, err := c.Right.resolve(row)
	if err != nil {
		return false, err
	}
	if predicate.IsNull(l) || predicate.IsNull(r) {
		return false, nil
	}
	cmp, err := predicate.CompareValues(l, r)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case predicate.OpEq:
		return cmp == 0, nil
	case predicate.OpNe:
		return cmp != 0, nil
	case predicate.OpLt:
		return cmp < 0, nil
	case predicate.OpLe:
		return cmp <= 0, nil
	case predicate.OpGt:
		return cmp > 0, nil
	case predicate.OpGe:
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unknown operator %q", c.Op)
}

func (c NullTest) Evaluate(row []predicate.Value) (bool, error) {
	if c.Slot < 0 || c.Slot >= len(row) {
		return false, fmt.Errorf("slot %d out of range", c.Slot)
	}
	isNull := predicate.IsNull(row[c.Slot])
	return isNull != c.Negated, nil
}

func (c AllOf) Evaluate(row []predicate.Value) (bool, error) {
	for _, t := range c.Terms {
		ok, err := t.Evaluate(row)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c AnyOf) Evaluate(row []predicate.Value) (bool, error) {
	for _, t := range c.Terms {
		ok, err := t.Evaluate(row)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (c NoneOf) Evaluate(row []predicate.Value) (bool, error) {
	ok, err := c.Term.Evaluate(row)
	return !ok && err == nil, err
}

func (c SlotTest) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

func (c NullTest) String() string {
	if c.Negated {
		return fmt.Sprintf("$%d is not null", c.Slot)
	}
	return fmt.Sprintf("$%d is null", c.Slot)
}

func (c AllOf) String() string { return joinTerms(c.Terms, " and ") }
func (c AnyOf) String() string { return joinTerms(c.Terms, " or ") }
func (c NoneOf) String() string {
	return "not (" + c.Term.String() + ")"
}

func joinTerms(terms []Condition, sep string) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
