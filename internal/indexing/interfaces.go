package indexing

import (
	"github.com/roach88/polyindex/internal/model"
)

// buildInterfaceIndexes builds the declared indexes of every interface,
// base interfaces first. Indexes of interfaces without a table are
// abstract: they shape implementor indexes but store nothing.
func (b *builder) buildInterfaceIndexes() error {
	done := make(map[model.TypeID]bool)
	var build func(iface *model.TypeNode) error
	build = func(iface *model.TypeNode) error {
		if done[iface.ID] {
			return nil
		}
		done[iface.ID] = true
		for _, base := range iface.Interfaces {
			if err := build(b.m.Type(base)); err != nil {
				return err
			}
		}

		tbl := b.tableOf(iface)
		add := func(ix *model.Index) error {
			if !iface.Materialized {
				ix.Attributes |= model.AttrAbstract
			}
			return b.register(iface, ix)
		}
		for i := range iface.IndexDefs {
			ix, err := b.realIndex(iface, iface, tbl, &iface.IndexDefs[i], iface.ID, nil)
			if err != nil {
				return err
			}
			if err := add(ix); err != nil {
				return err
			}
		}
		for _, baseID := range iface.Interfaces {
			for _, bix := range b.m.Type(baseID).Indexes.All() {
				if !bix.IsReal() || !bix.IsSecondary() {
					continue
				}
				ix, err := b.realIndex(iface, iface, tbl, bix.Def(), iface.ID, bix)
				if err != nil {
					return err
				}
				if err := add(ix); err != nil {
					return err
				}
			}
		}
		b.built[iface.ID] = true
		return nil
	}
	for _, iface := range b.m.InterfaceTypes() {
		if err := build(iface); err != nil {
			return err
		}
	}
	return nil
}

// composeInterfaces builds the queryable indexes of every interface that
// has implementors but no table of its own.
func (b *builder) composeInterfaces() error {
	for _, iface := range b.m.InterfaceTypes() {
		if iface.Materialized {
			continue
		}
		impls := b.m.Implementors(iface.ID)
		if len(impls) == 0 {
			continue
		}
		b.log.Debug("composing interface", "type", iface.Name, "implementors", len(impls))

		for _, decl := range iface.Indexes.All() {
			if !decl.IsReal() {
				continue
			}
			ix, missing, err := b.composeInterfaceIndex(iface, impls, decl)
			if err != nil {
				return err
			}
			if missing != nil {
				b.warn(iface, decl.Name, "interface index is not composed: an implementor has no matching index",
					"implementor", missing.Name)
				continue
			}
			if err := b.register(iface, ix); err != nil {
				return err
			}
		}
	}
	return nil
}

// composeInterfaceIndex composes decl from the implementors' indexes of the
// same lineage. With one implementor it is a View of that implementor's
// index. Otherwise implementors are grouped by hierarchy and each group
// contributes the schema's composition: a shared table gives one type Filter
// per topmost implementor, reflected on that implementor so its own columns
// resolve. Several parts are Unioned. A non-nil missing names an
// implementor that has no matching index.
func (b *builder) composeInterfaceIndex(iface *model.TypeNode, impls []*model.TypeNode, decl *model.Index) (ix *model.Index, missing *model.TypeNode, err error) {
	if len(impls) == 1 {
		src := b.effectiveIndex(impls[0], decl)
		if src == nil {
			return nil, impls[0], nil
		}
		ix, err = b.compose.View(iface, src)
		return ix, nil, err
	}

	var parts []*model.Index
	for _, g := range b.groupByHierarchy(impls) {
		switch g.h.Schema {
		case model.SingleTable:
			root := b.m.Type(g.h.Root)
			for _, impl := range g.types {
				src := b.sharedMatch(root, impl, decl)
				if src == nil {
					return nil, impl, nil
				}
				f, err := b.compose.Filter(impl, src, b.concreteTypes(impl))
				if err != nil {
					return nil, nil, err
				}
				v, err := b.compose.View(iface, f)
				if err != nil {
					return nil, nil, err
				}
				parts = append(parts, v)
			}

		case model.ConcreteTable:
			for _, impl := range g.types {
				for _, t := range b.m.Subtree(impl.ID) {
					if t.Abstract {
						continue
					}
					src := b.realMatch(t, decl)
					if src == nil {
						return nil, t, nil
					}
					v, err := b.compose.View(iface, src)
					if err != nil {
						return nil, nil, err
					}
					parts = append(parts, v)
				}
			}

		default:
			for _, impl := range g.types {
				src := b.effectiveIndex(impl, decl)
				if src == nil {
					return nil, impl, nil
				}
				v, err := b.compose.View(iface, src)
				if err != nil {
					return nil, nil, err
				}
				parts = append(parts, v)
			}
		}
	}
	if len(parts) == 1 {
		return parts[0], nil, nil
	}
	ix, err = b.compose.Union(iface, parts)
	return ix, nil, err
}

// effectiveIndex returns the index of t answering queries for decl: the
// effective primary for a primary decl, otherwise the index with decl's
// lineage, preferring a composed one over the stored one.
func (b *builder) effectiveIndex(t *model.TypeNode, decl *model.Index) *model.Index {
	if decl.IsPrimary() {
		return t.Indexes.Primary()
	}
	origin := decl.Lineage()
	matches := t.Indexes.Find(func(ix *model.Index) bool {
		return ix.Kind() != model.IndexTyped && ix.Lineage() == origin
	})
	for _, ix := range matches {
		if ix.IsVirtual() {
			return ix
		}
	}
	if len(matches) > 0 {
		return matches[0]
	}
	return nil
}

// realMatch returns the stored index of t answering queries for decl.
func (b *builder) realMatch(t *model.TypeNode, decl *model.Index) *model.Index {
	if decl.IsPrimary() {
		return t.Indexes.RealPrimary()
	}
	origin := decl.Lineage()
	return t.Indexes.First(func(ix *model.Index) bool {
		return ix.IsReal() && ix.Lineage() == origin
	})
}

// sharedMatch returns the stored index on a shared-table root that holds
// impl's rows for decl.
func (b *builder) sharedMatch(root, impl *model.TypeNode, decl *model.Index) *model.Index {
	if decl.IsPrimary() {
		return root.Indexes.RealPrimary()
	}
	origin := decl.Lineage()
	return root.Indexes.First(func(ix *model.Index) bool {
		return ix.IsReal() && ix.Lineage() == origin && coversType(b.m, ix, impl.ID)
	})
}

type implementorGroup struct {
	h     *model.Hierarchy
	types []*model.TypeNode
}

// groupByHierarchy groups implementors by hierarchy in order of first
// appearance.
func (b *builder) groupByHierarchy(impls []*model.TypeNode) []implementorGroup {
	var groups []implementorGroup
	at := make(map[*model.Hierarchy]int)
	for _, t := range impls {
		i, ok := at[t.Hierarchy]
		if !ok {
			i = len(groups)
			at[t.Hierarchy] = i
			groups = append(groups, implementorGroup{h: t.Hierarchy})
		}
		groups[i].types = append(groups[i].types, t)
	}
	return groups
}
