package indexing

import (
	"maps"
	"slices"

	"github.com/roach88/polyindex/internal/model"
)

// table is the physical column set backing a type's real indexes.
type table struct {
	owner   *model.TypeNode
	columns []*model.Column
	byField map[fieldKey]*model.Column
}

// fieldKey identifies a column by the field it stores. Inherited copies of
// a field share the declaring type, so the key is stable down a hierarchy.
type fieldKey struct {
	declaring model.TypeID
	name      string
}

func keyOf(c *model.Column) fieldKey {
	return fieldKey{declaring: c.DeclaringType, name: c.Field.Name}
}

func newTable(owner *model.TypeNode) *table {
	return &table{owner: owner, byField: make(map[fieldKey]*model.Column)}
}

func (t *table) add(c *model.Column) {
	t.columns = append(t.columns, c)
	t.byField[keyOf(c)] = c
}

// lookup returns the table column storing c.
func (t *table) lookup(c *model.Column) (*model.Column, bool) {
	col, ok := t.byField[keyOf(c)]
	return col, ok
}

func (t *table) hasTypeID() bool {
	for _, c := range t.columns {
		if c.System && c.Field.IsTypeID() {
			return true
		}
	}
	return false
}

func (t *table) primaryKey() []*model.Column {
	var cols []*model.Column
	for _, c := range t.columns {
		if c.PrimaryKey {
			cols = append(cols, c)
		}
	}
	return cols
}

// tableOf returns the table of t under its hierarchy's schema. Interfaces
// map onto a table holding all of their columns.
func (b *builder) tableOf(t *model.TypeNode) *table {
	if tbl, ok := b.tables[t.ID]; ok {
		return tbl
	}
	var tbl *table
	switch {
	case t.IsInterface():
		tbl = newTable(t)
		for _, c := range t.Columns {
			tbl.add(c)
		}
	case t.Hierarchy.Schema == model.SingleTable:
		root := b.m.Type(t.Hierarchy.Root)
		if root != t {
			tbl = b.tableOf(root)
		} else {
			tbl = b.gatherSingleTable(root)
		}
	case t.Hierarchy.Schema == model.ConcreteTable:
		tbl = newTable(t)
		for _, c := range t.Columns {
			tbl.add(c)
		}
	default:
		tbl = newTable(t)
		for _, c := range t.Columns {
			if c.PrimaryKey || c.Declared {
				tbl.add(c)
			}
		}
	}
	b.tables[t.ID] = tbl
	return tbl
}

// gatherSingleTable collects the columns of every type of root's hierarchy
// into one table. A declared column whose name is taken by another type's
// column is renamed to "<DeclaringType>.<Name>".
func (b *builder) gatherSingleTable(root *model.TypeNode) *table {
	tbl := newTable(root)
	names := make(map[string]bool)
	for _, c := range root.Columns {
		tbl.add(c)
		names[c.Name] = true
	}
	for _, t := range b.m.Descendants(root.ID, true) {
		for _, c := range t.Columns {
			if !c.Declared || c.PrimaryKey || c.System {
				continue
			}
			if names[c.Name] {
				c = c.Clone(t.Name + "." + c.Name)
			}
			names[c.Name] = true
			tbl.add(c)
		}
	}
	return tbl
}

// resolveColumns maps a field of fieldOwner onto the columns of tbl. A
// reference or structure field resolves to all of its leaf columns.
func (b *builder) resolveColumns(fieldOwner *model.TypeNode, tbl *table, ixName, field string) ([]*model.Column, error) {
	f, ok := fieldOwner.Field(field)
	if !ok {
		return nil, fieldErr(ErrUnresolvedField, fieldOwner.Name, ixName, field, "no such field")
	}
	leaves := f.Columns()
	if len(leaves) == 0 {
		return nil, fieldErr(ErrUnresolvedField, fieldOwner.Name, ixName, field, "field has no columns")
	}
	out := make([]*model.Column, 0, len(leaves))
	for _, leaf := range leaves {
		col, ok := tbl.lookup(leaf)
		if !ok {
			if f.Inherited {
				return nil, fieldErr(ErrInheritedKey, fieldOwner.Name, ixName, field,
					"column %s is stored in the table of %s", leaf.Name, b.m.NameOf(leaf.DeclaringType))
			}
			return nil, fieldErr(ErrUnresolvedField, fieldOwner.Name, ixName, field,
				"column %s is not stored in the table of %s", leaf.Name, tbl.owner.Name)
		}
		out = append(out, col)
	}
	return out, nil
}

// sourceFieldName maps a field name of target onto the field name carrying
// the same value in from's layout.
func sourceFieldName(target, from *model.TypeNode, name string) string {
	switch {
	case target.IsInterface() && !from.IsInterface():
		return from.ImplementingField(target.ID, name)
	case !target.IsInterface() && from.IsInterface():
		mapping := target.InterfaceMap[from.ID]
		for _, ifaceField := range slices.Sorted(maps.Keys(mapping)) {
			if mapping[ifaceField] == name {
				return ifaceField
			}
		}
	}
	return name
}

// sameValue reports whether source column sc of from carries the value of
// target column tc. Reading an entity into an interface layout takes the
// column from itself stores the field in, so a shared table holding one
// field name for several types resolves to from's own.
func sameValue(target, from *model.TypeNode, tc, sc *model.Column) bool {
	name := sourceFieldName(target, from, tc.Field.Name)
	if sc.Field.Name != name {
		return false
	}
	switch {
	case from.IsInterface():
		return true
	case target.IsInterface():
		f, ok := from.Field(name)
		return ok && f.Column != nil && f.Column.DeclaringType == sc.DeclaringType
	}
	return sc.DeclaringType == tc.DeclaringType
}

// remap maps a column of from onto target's columns.
func remap(target, from *model.TypeNode, sc *model.Column) (*model.Column, bool) {
	for _, tc := range target.Columns {
		if sameValue(target, from, tc, sc) {
			return tc, true
		}
	}
	return nil, false
}

func containsColumn(cols []*model.Column, c *model.Column) bool {
	for _, existing := range cols {
		if existing.SameAs(c) {
			return true
		}
	}
	return false
}
