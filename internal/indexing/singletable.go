package indexing

import (
	"github.com/roach88/polyindex/internal/model"
)

// singleTableBuilder derives indexes for one shared table per hierarchy.
// Real indexes live on the root; every other type sees type Filters.
type singleTableBuilder struct {
	b *builder
	h *model.Hierarchy
}

func (sb *singleTableBuilder) buildType(t *model.TypeNode) error {
	b := sb.b
	root := b.m.Type(sb.h.Root)
	tbl := b.tableOf(root)

	for i := range t.IndexDefs {
		ix, err := b.realIndex(root, t, tbl, &t.IndexDefs[i], t.ID, nil)
		if err != nil {
			return err
		}
		if err := b.register(root, ix); err != nil {
			return err
		}
	}

	for _, ii := range b.interfaceIndexes(t) {
		def := implementedDef(ii.index.Def(), t, ii.iface.ID)
		ix, err := b.realIndex(root, t, tbl, def, t.ID, ii.index)
		if err != nil {
			return err
		}
		origin := ii.index.Lineage()
		shared := root.Indexes.First(func(r *model.Index) bool {
			return r.IsReal() && r.Lineage() == origin && sameShape(r, ix)
		})
		if shared != nil {
			if shared.DeclaringType != t.ID {
				shared.SharedWith = append(shared.SharedWith, t.ID)
			}
			continue
		}
		if _, taken := root.Indexes.Get(ix.Name); taken {
			ix.Name = b.names.Declared(ix)
		}
		if err := b.register(root, ix); err != nil {
			return err
		}
	}

	if t == root {
		return nil
	}
	return sb.buildFilters(t, root)
}

func (sb *singleTableBuilder) finish() error { return nil }

// buildFilters exposes the root indexes visible on t, restricted to t and
// its concrete descendants. Indexes declared by an interface are wrapped in
// a View onto t's layout.
func (sb *singleTableBuilder) buildFilters(t, root *model.TypeNode) error {
	b := sb.b
	types := b.concreteTypes(t)

	primary, err := b.compose.Filter(t, root.Indexes.RealPrimary(), types)
	if err != nil {
		return err
	}
	if err := b.register(t, primary); err != nil {
		return err
	}

	for _, ix := range root.Indexes.All() {
		if !ix.IsReal() || !ix.IsSecondary() || !sb.visible(t, ix) {
			continue
		}
		f, err := b.compose.Filter(t, ix, types)
		if err != nil {
			return err
		}
		if b.m.Type(ix.Lineage().ReflectedType).IsInterface() {
			if f, err = b.compose.View(t, f); err != nil {
				return err
			}
		}
		if err := b.register(t, f); err != nil {
			return err
		}
	}
	return nil
}

// visible reports whether a root index was declared by t, an ancestor of
// t, or an implementor sharing it with one of those.
func (sb *singleTableBuilder) visible(t *model.TypeNode, ix *model.Index) bool {
	return coversType(sb.b.m, ix, t.ID)
}

// coversType reports whether rows of id are stored in ix: id is one of its
// declarers or descends from one.
func coversType(m *model.Model, ix *model.Index, id model.TypeID) bool {
	for _, d := range ix.Declarers() {
		if d == id || m.IsAncestor(d, id) {
			return true
		}
	}
	return false
}

// sameShape reports whether two real indexes store the same key and
// included columns.
func sameShape(a, b *model.Index) bool {
	if len(a.KeyColumns) != len(b.KeyColumns) || len(a.IncludedColumns) != len(b.IncludedColumns) {
		return false
	}
	for i, k := range a.KeyColumns {
		if !k.Column.SameAs(b.KeyColumns[i].Column) || k.Direction != b.KeyColumns[i].Direction {
			return false
		}
	}
	for i, c := range a.IncludedColumns {
		if !c.SameAs(b.IncludedColumns[i]) {
			return false
		}
	}
	return true
}
