package indexing

import (
	"github.com/roach88/polyindex/internal/model"
)

// resolveClustered leaves at most one clustered index per type. Real
// primary indexes start clustered unless declared otherwise; a chosen
// clustered secondary demotes them.
func (b *builder) resolveClustered() error {
	for _, h := range b.m.Hierarchies {
		var err error
		switch h.Schema {
		case model.SingleTable:
			err = b.clusterSingleTable(h)
		case model.ConcreteTable:
			err = b.clusterConcreteTable(h)
		default:
			for _, id := range h.Types {
				if err = b.clusterLocal(b.m.Type(id)); err != nil {
					break
				}
			}
		}
		if err != nil {
			return err
		}
	}
	for _, iface := range b.m.InterfaceTypes() {
		if iface.Materialized {
			if err := b.clusterLocal(iface); err != nil {
				return err
			}
		}
	}
	return nil
}

// clusteredSecondaries returns t's stored clustered secondary indexes
// matching pred.
func clusteredSecondaries(t *model.TypeNode, pred func(*model.Index) bool) []*model.Index {
	return t.Indexes.Find(func(ix *model.Index) bool {
		return ix.IsReal() && ix.IsSecondary() && ix.IsClustered() &&
			ix.ReflectedType == t.ID && pred(ix)
	})
}

func anyIndex(*model.Index) bool { return true }

func (b *builder) tooMany(t *model.TypeNode, candidates []*model.Index) *BuildError {
	err := buildErr(ErrTooManyClustered, t.Name, "", "too many clustered indexes")
	for _, ix := range candidates {
		err.Details = append(err.Details, ix.Name)
	}
	return err
}

func demotePrimary(t *model.TypeNode) {
	if p := t.Indexes.RealPrimary(); p != nil {
		p.SetClustered(false)
	}
}

// clusterSingleTable allows one clustered secondary, declared by the root.
func (b *builder) clusterSingleTable(h *model.Hierarchy) error {
	root := b.m.Type(h.Root)
	candidates := clusteredSecondaries(root, anyIndex)
	for _, ix := range candidates {
		if ix.DeclaringType != root.ID {
			declaring := b.m.NameOf(ix.DeclaringType)
			return buildErr(ErrClusteredNotRoot, declaring, ix.Name,
				"only the hierarchy root %s may declare a clustered index", root.Name)
		}
	}
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		demotePrimary(root)
		return nil
	}
	return b.tooMany(root, candidates)
}

// clusterLocal allows one clustered secondary per type.
func (b *builder) clusterLocal(t *model.TypeNode) error {
	candidates := clusteredSecondaries(t, anyIndex)
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		demotePrimary(t)
		return nil
	}
	return b.tooMany(t, candidates)
}

// clusterConcreteTable walks the hierarchy breadth-first. A type's own
// clustered secondary wins; otherwise it keeps the copy of the index its
// parent chose.
func (b *builder) clusterConcreteTable(h *model.Hierarchy) error {
	chosen := make(map[model.TypeID]*model.Index)
	queue := []model.TypeID{h.Root}
	for len(queue) > 0 {
		t := b.m.Type(queue[0])
		queue = append(queue[1:], t.Descendants...)

		local := clusteredSecondaries(t, b.declaredLocally)
		inherited := clusteredSecondaries(t, func(ix *model.Index) bool { return !b.declaredLocally(ix) })

		var pick *model.Index
		switch {
		case len(local) > 1:
			return b.tooMany(t, local)
		case len(local) == 1:
			pick = local[0]
		case t.Ancestor != model.NoType && chosen[t.Ancestor] != nil:
			want := chosen[t.Ancestor].Lineage()
			for _, ix := range inherited {
				if ix.Lineage() == want {
					pick = ix
					break
				}
			}
			if pick == nil {
				return internalErr(t.Name, "no inherited candidate for clustered index %s of %s",
					chosen[t.Ancestor].Name, b.m.NameOf(t.Ancestor))
			}
		}

		for _, ix := range inherited {
			if ix != pick {
				ix.SetClustered(false)
			}
		}
		if pick != nil {
			demotePrimary(t)
		}
		chosen[t.ID] = pick
	}
	return nil
}

// declaredLocally reports whether a stored index was declared by its type
// itself or inherited from an interface rather than from the ancestor.
func (b *builder) declaredLocally(ix *model.Index) bool {
	return ix.InheritedFrom == nil || b.m.Type(ix.InheritedFrom.ReflectedType).IsInterface()
}
