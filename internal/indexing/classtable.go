package indexing

import (
	"errors"
	"slices"

	"github.com/roach88/polyindex/internal/model"
)

// classTableBuilder derives indexes for one table per type.
type classTableBuilder struct {
	b *builder
	h *model.Hierarchy
}

func (cb *classTableBuilder) buildType(t *model.TypeNode) error {
	b := cb.b
	tbl := b.tableOf(t)

	if t.Ancestor == model.NoType {
		for i := range t.IndexDefs {
			if !t.IndexDefs[i].Primary {
				continue
			}
			ix, err := b.realIndex(t, t, tbl, &t.IndexDefs[i], t.ID, nil)
			if err != nil {
				return err
			}
			if err := b.register(t, ix); err != nil {
				return err
			}
		}
	} else {
		parent := b.m.Type(t.Ancestor).Indexes.RealPrimary()
		if parent == nil {
			return internalErr(t.Name, "ancestor %s has no primary index", b.m.NameOf(t.Ancestor))
		}
		ix, err := b.realIndex(t, t, tbl, parent.Def(), t.ID, parent)
		if err != nil {
			return err
		}
		if err := b.register(t, ix); err != nil {
			return err
		}
	}

	for i := range t.IndexDefs {
		def := &t.IndexDefs[i]
		if def.Primary {
			continue
		}
		if cb.inheritedOnly(t, def) && cb.coveredByAncestor(t, def) {
			b.log.Debug("skipping index covered by ancestor", "type", t.Name, "index", def.Name)
			continue
		}
		ix, err := b.realIndex(t, t, tbl, def, t.ID, nil)
		if err != nil {
			return err
		}
		if err := b.register(t, ix); err != nil {
			return err
		}
	}

	for _, ii := range b.interfaceIndexes(t) {
		def := implementedDef(ii.index.Def(), t, ii.iface.ID)
		if cb.coveredByAncestor(t, def) {
			continue
		}
		ix, err := b.realIndex(t, t, tbl, def, t.ID, ii.index)
		if err != nil {
			var be *BuildError
			if errors.As(err, &be) && be.Code == ErrInheritedKey {
				b.warn(t, ii.index.Name, "interface index is not usable: key fields are stored in an ancestor table",
					"interface", ii.iface.Name, "fields", def.KeyFieldNames())
				continue
			}
			return err
		}
		if err := b.register(t, ix); err != nil {
			return err
		}
	}

	if err := b.addTyped(t); err != nil {
		return err
	}
	if t.Ancestor == model.NoType {
		return nil
	}
	if err := cb.buildPrimary(t); err != nil {
		return err
	}
	return cb.buildAncestorSecondaries(t)
}

func (cb *classTableBuilder) finish() error { return nil }

// buildPrimary composes the row of t: a type Filter over the root table,
// joined with the tables of every other type in the chain that declares
// value columns.
func (cb *classTableBuilder) buildPrimary(t *model.TypeNode) error {
	b := cb.b
	chain := b.m.Chain(t.ID)
	root := chain[0]

	var rest []*model.Index
	for _, a := range chain[1:] {
		if !a.DeclaresValueColumns() {
			continue
		}
		rest = append(rest, withTyped(a, a.Indexes.RealPrimary()))
	}

	head, err := b.compose.Filter(t, root.Indexes.RealPrimary(), b.concreteTypes(t))
	if err != nil {
		return err
	}
	primary := head
	if len(rest) > 0 {
		primary, err = b.compose.Join(t, append([]*model.Index{head}, rest...))
		if err != nil {
			return err
		}
	}
	return b.register(t, primary)
}

// buildAncestorSecondaries exposes every ancestor secondary index on t as a
// Filter restricted to t's concrete types.
func (cb *classTableBuilder) buildAncestorSecondaries(t *model.TypeNode) error {
	b := cb.b
	types := b.concreteTypes(t)
	for _, a := range b.m.Ancestors(t.ID) {
		for _, ix := range a.Indexes.All() {
			if !ix.IsReal() || !ix.IsSecondary() || ix.ReflectedType != a.ID {
				continue
			}
			f, err := b.compose.Filter(t, withTyped(a, ix), types)
			if err != nil {
				return err
			}
			if err := b.register(t, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// inheritedOnly reports whether every key field of def is inherited by t.
func (cb *classTableBuilder) inheritedOnly(t *model.TypeNode, def *model.IndexDef) bool {
	for _, name := range def.KeyFieldNames() {
		f, ok := t.Field(name)
		if !ok || !f.Inherited {
			return false
		}
	}
	return len(def.KeyFields) > 0
}

// coveredByAncestor reports whether an ancestor already has a real index
// over the same key fields.
func (cb *classTableBuilder) coveredByAncestor(t *model.TypeNode, def *model.IndexDef) bool {
	want := def.KeyFieldNames()
	for _, a := range cb.b.m.Ancestors(t.ID) {
		covered := a.Indexes.First(func(ix *model.Index) bool {
			return ix.IsReal() && ix.IsSecondary() && ix.Def() != nil &&
				slices.Equal(ix.Def().KeyFieldNames(), want)
		})
		if covered != nil {
			return true
		}
	}
	return false
}
