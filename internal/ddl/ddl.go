// Package ddl renders SQLite CREATE INDEX statements for the stored
// secondary indexes of a built model.
//
// Indexes declared by a derived type of a SingleTable hierarchy live on the
// shared root table; their statements carry a WHERE on the TypeId column
// restricting them to the declaring type's rows. Partial filters render
// to WHERE as well. SQLite has no INCLUDE clause, so included columns are
// listed in a trailing comment.
package ddl

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/predicate"
)

// Script renders a statement per stored secondary index of m, in build
// order, each terminated by ";\n".
func Script(m *model.Model) (string, error) {
	var sb strings.Builder
	for _, ix := range m.RealIndexes {
		if !ix.IsSecondary() {
			continue
		}
		stmt, err := CreateIndex(m, ix)
		if err != nil {
			return "", err
		}
		sb.WriteString(stmt)
		sb.WriteString(";\n")
	}
	return sb.String(), nil
}

// CreateIndex renders the statement for one stored secondary index.
func CreateIndex(m *model.Model, ix *model.Index) (string, error) {
	if !ix.IsReal() || !ix.IsSecondary() {
		return "", fmt.Errorf("ddl: %s is not a stored secondary index", ix.Name)
	}
	if ix.IsAbstract() {
		return "", fmt.Errorf("ddl: %s is abstract", ix.Name)
	}

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if ix.IsUnique() {
		sb.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&sb, "INDEX %s ON %s (", quote(ix.Name), quote(m.NameOf(ix.ReflectedType)))
	for i, k := range ix.KeyColumns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quote(k.Column.Name))
		if k.Direction == model.Descending {
			sb.WriteString(" DESC")
		}
	}
	sb.WriteString(")")

	var where []string
	if tf := typeFilter(m, ix); tf != "" {
		where = append(where, tf)
	}
	if ix.Filter != nil {
		cond, err := renderCondition(ix, ix.Filter.Condition)
		if err != nil {
			return "", fmt.Errorf("ddl: %s: %w", ix.Name, err)
		}
		where = append(where, cond)
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	if len(ix.IncludedColumns) > 0 {
		names := make([]string, len(ix.IncludedColumns))
		for i, c := range ix.IncludedColumns {
			names[i] = c.Name
		}
		fmt.Fprintf(&sb, " -- include: %s", strings.Join(names, ", "))
	}
	return sb.String(), nil
}

// typeFilter restricts an index declared below the root of a SingleTable
// hierarchy to the concrete subtrees of its declaring types.
func typeFilter(m *model.Model, ix *model.Index) string {
	reflected := m.Type(ix.ReflectedType)
	h := reflected.Hierarchy
	if h == nil || h.Schema != model.SingleTable {
		return ""
	}
	var ids []int
	seen := make(map[model.TypeID]bool)
	for _, id := range ix.Declarers() {
		if id == ix.ReflectedType {
			return ""
		}
		declaring := m.Type(id)
		if !declaring.IsEntity() {
			return ""
		}
		for _, t := range m.Subtree(declaring.ID) {
			if t.Abstract || seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			if d, ok := h.Key.Discriminators[t.ID]; ok {
				ids = append(ids, d)
			}
		}
	}
	slices.Sort(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("%s IN (%s)", quote(model.TypeIDFieldName), strings.Join(parts, ", "))
}

func renderCondition(ix *model.Index, c model.Condition) (string, error) {
	switch c := c.(type) {
	case model.NullTest:
		col, err := slotColumn(ix, c.Slot)
		if err != nil {
			return "", err
		}
		if c.Negated {
			return col + " IS NOT NULL", nil
		}
		return col + " IS NULL", nil

	case model.SlotTest:
		left, err := renderOperand(ix, c.Left)
		if err != nil {
			return "", err
		}
		right, err := renderOperand(ix, c.Right)
		if err != nil {
			return "", err
		}
		op := string(c.Op)
		switch c.Op {
		case predicate.OpEq:
			op = "="
		case predicate.OpNe:
			op = "<>"
		}
		return fmt.Sprintf("%s %s %s", left, op, right), nil

	case model.AllOf:
		return renderTerms(ix, c.Terms, " AND ")
	case model.AnyOf:
		return renderTerms(ix, c.Terms, " OR ")
	case model.NoneOf:
		inner, err := renderCondition(ix, c.Term)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	}
	return "", fmt.Errorf("unsupported condition %T", c)
}

func renderTerms(ix *model.Index, terms []model.Condition, sep string) (string, error) {
	parts := make([]string, len(terms))
	for i, t := range terms {
		s, err := renderCondition(ix, t)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func renderOperand(ix *model.Index, o model.Operand) (string, error) {
	if !o.IsLiteral() {
		return slotColumn(ix, o.Slot)
	}
	switch v := o.Literal.(type) {
	case predicate.Null:
		return "NULL", nil
	case predicate.Int:
		return strconv.FormatInt(int64(v), 10), nil
	case predicate.Enum:
		return strconv.FormatInt(v.Value, 10), nil
	case predicate.Bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case predicate.Str:
		return "'" + strings.ReplaceAll(string(v), "'", "''") + "'", nil
	}
	return "", fmt.Errorf("unsupported literal %T", o.Literal)
}

// slotColumn names the stored column behind a filter slot. A column the
// shared table renamed is found through the index's own columns.
func slotColumn(ix *model.Index, slot int) (string, error) {
	f := ix.Filter
	if slot < 0 || slot >= len(f.Fields) {
		return "", fmt.Errorf("slot %d out of range", slot)
	}
	field := f.Fields[slot]
	for _, c := range ix.Columns() {
		if c.Field == field {
			return quote(c.Name), nil
		}
	}
	if field.Column == nil {
		return "", fmt.Errorf("field %s has no column", field.Name)
	}
	return quote(field.Column.Name), nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
