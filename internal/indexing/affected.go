package indexing

import (
	"github.com/roach88/polyindex/internal/model"
)

// computeAffected records, per entity, the stored indexes a write of one of
// its rows touches.
func (b *builder) computeAffected() error {
	for _, t := range b.m.Entities() {
		inChain := make(map[model.TypeID]bool)
		for _, a := range b.m.Chain(t.ID) {
			inChain[a.ID] = true
		}
		acc := newIndexList()
		for _, ix := range t.Indexes.All() {
			ix.Walk(func(c *model.Index) {
				if c.IsReal() && !c.IsAbstract() && inChain[c.ReflectedType] {
					acc.add(c)
				}
			})
		}
		if t.Hierarchy.Schema != model.ConcreteTable {
			// every stored index on the chain's tables holds the row,
			// sibling-declared ones on a shared root included
			for _, a := range b.m.Chain(t.ID) {
				for _, ix := range a.Indexes.All() {
					if ix.IsReal() && !ix.IsAbstract() && ix.ReflectedType == a.ID {
						acc.add(ix)
					}
				}
			}
		}
		if t.Hierarchy.Schema == model.ClassTable {
			for _, a := range b.m.Ancestors(t.ID) {
				if p := a.Indexes.RealPrimary(); p != nil {
					acc.add(p)
				}
			}
		}
		t.AffectedIndexes = acc.items
	}

	for _, iface := range b.m.InterfaceTypes() {
		if !iface.Materialized {
			continue
		}
		primary := iface.Indexes.RealPrimary()
		for _, impl := range b.m.AllImplementors(iface.ID) {
			acc := &indexList{items: impl.AffectedIndexes, seen: make(map[*model.Index]bool)}
			for _, ix := range impl.AffectedIndexes {
				acc.seen[ix] = true
			}
			if primary != nil {
				acc.add(primary)
			}
			for _, ix := range iface.Indexes.All() {
				if ix.IsReal() && ix.IsSecondary() && b.resolvableOn(impl, iface, ix) {
					acc.add(ix)
				}
			}
			impl.AffectedIndexes = acc.items
		}
	}
	return nil
}

// resolvableOn reports whether every key field of an interface index maps
// onto a field of impl.
func (b *builder) resolvableOn(impl, iface *model.TypeNode, ix *model.Index) bool {
	if ix.Def() == nil {
		return false
	}
	for _, name := range ix.Def().KeyFieldNames() {
		if _, ok := impl.Field(impl.ImplementingField(iface.ID, name)); !ok {
			return false
		}
	}
	return true
}

type indexList struct {
	items []*model.Index
	seen  map[*model.Index]bool
}

func newIndexList() *indexList {
	return &indexList{seen: make(map[*model.Index]bool)}
}

func (l *indexList) add(ix *model.Index) {
	if l.seen[ix] {
		return
	}
	l.seen[ix] = true
	l.items = append(l.items, ix)
}
