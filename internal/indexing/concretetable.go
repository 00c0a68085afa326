package indexing

import (
	"github.com/roach88/polyindex/internal/model"
)

// concreteTableBuilder derives indexes for one self-contained table per
// concrete type. Abstract types own abstract indexes with no table.
type concreteTableBuilder struct {
	b *builder
	h *model.Hierarchy
}

func (cb *concreteTableBuilder) buildType(t *model.TypeNode) error {
	b := cb.b
	tbl := b.tableOf(t)

	add := func(ix *model.Index) error {
		if t.Abstract {
			ix.Attributes |= model.AttrAbstract
		}
		return b.register(t, ix)
	}

	if t.Ancestor == model.NoType {
		for i := range t.IndexDefs {
			if !t.IndexDefs[i].Primary {
				continue
			}
			ix, err := b.realIndex(t, t, tbl, &t.IndexDefs[i], t.ID, nil)
			if err != nil {
				return err
			}
			if err := add(ix); err != nil {
				return err
			}
		}
	} else {
		parent := b.m.Type(t.Ancestor)
		for _, pix := range parent.Indexes.All() {
			if !pix.IsReal() || pix.ReflectedType != parent.ID {
				continue
			}
			ix, err := b.realIndex(t, t, tbl, pix.Def(), t.ID, pix)
			if err != nil {
				return err
			}
			if err := add(ix); err != nil {
				return err
			}
		}
	}

	for i := range t.IndexDefs {
		if t.IndexDefs[i].Primary {
			continue
		}
		ix, err := b.realIndex(t, t, tbl, &t.IndexDefs[i], t.ID, nil)
		if err != nil {
			return err
		}
		if err := add(ix); err != nil {
			return err
		}
	}

	for _, ii := range b.interfaceIndexes(t) {
		def := implementedDef(ii.index.Def(), t, ii.iface.ID)
		ix, err := b.realIndex(t, t, tbl, def, t.ID, ii.index)
		if err != nil {
			return err
		}
		if err := add(ix); err != nil {
			return err
		}
	}
	return nil
}

// finish builds, for every type with descendants, a Union of its own
// indexes and Views of the matching index of each concrete descendant.
func (cb *concreteTableBuilder) finish() error {
	b := cb.b
	for _, id := range cb.h.Types {
		t := b.m.Type(id)
		if len(t.Descendants) == 0 {
			continue
		}
		var concrete []*model.TypeNode
		for _, d := range b.m.Descendants(t.ID, true) {
			if !d.Abstract {
				concrete = append(concrete, d)
			}
		}
		if len(concrete) == 0 {
			continue
		}
		for _, own := range t.Indexes.All() {
			if !own.IsReal() || own.ReflectedType != t.ID {
				continue
			}
			u, err := cb.union(t, own, concrete)
			if err != nil {
				return err
			}
			if err := b.register(t, u); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cb *concreteTableBuilder) union(t *model.TypeNode, own *model.Index, concrete []*model.TypeNode) (*model.Index, error) {
	b := cb.b
	origin := own.Lineage()
	sources := []*model.Index{own}
	for _, d := range concrete {
		match := d.Indexes.First(func(ix *model.Index) bool {
			return ix.IsReal() && ix.ReflectedType == d.ID && ix.Lineage() == origin
		})
		if match == nil {
			return nil, internalErr(d.Name, "no index inherited from %s", own.Name)
		}
		v, err := b.compose.View(t, match)
		if err != nil {
			return nil, err
		}
		sources = append(sources, v)
	}
	return b.compose.Union(t, sources)
}
