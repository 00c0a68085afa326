package indexing

import (
	"slices"

	"github.com/roach88/polyindex/internal/model"
)

// Composer builds virtual indexes. Every primitive re-maps the source key
// and included columns field by field into the reflected type's columns.
type Composer struct {
	m     *model.Model
	names *Namer
}

// NewComposer creates a composer naming its output with names.
func NewComposer(m *model.Model, names *Namer) *Composer {
	return &Composer{m: m, names: names}
}

func virtualAttrs(a model.Attributes) model.Attributes {
	return a &^ (model.AttrClustered | model.AttrAbstract)
}

// Typed clones a real index and adds the reflected type's TypeId column to
// its value columns: first for primary indexes, last for secondary ones.
func (c *Composer) Typed(stored *model.Index) (*model.Index, error) {
	t := c.m.Type(stored.ReflectedType)
	typeID := t.TypeIDColumn()
	if typeID == nil {
		return nil, internalErr(t.Name, "typed index over %s: type has no %s column", stored.Name, model.TypeIDFieldName)
	}
	ix := model.NewIndex(t.ID, virtualAttrs(stored.Attributes), model.Typed{})
	ix.KeyColumns = slices.Clone(stored.KeyColumns)
	ix.IncludedColumns = slices.Clone(stored.IncludedColumns)
	if stored.IsPrimary() {
		ix.ValueColumns = append([]*model.Column{typeID}, stored.ValueColumns...)
	} else {
		ix.ValueColumns = append(slices.Clone(stored.ValueColumns), typeID)
	}
	c.derive(ix, stored, stored)
	ix.Name = c.names.Virtual(t.ID, stored, model.IndexTyped)
	return ix, nil
}

// Filter restricts source to the rows of types. Value columns are kept as
// they are.
func (c *Composer) Filter(reflected *model.TypeNode, source *model.Index, types []model.TypeID) (*model.Index, error) {
	keys, included, err := c.remapShape(reflected, source)
	if err != nil {
		return nil, err
	}
	ix := model.NewIndex(reflected.ID, virtualAttrs(source.Attributes), model.Filtered{Types: slices.Clone(types)})
	ix.KeyColumns = keys
	ix.IncludedColumns = included
	ix.ValueColumns = slices.Clone(source.ValueColumns)
	c.derive(ix, source, source)
	ix.Name = c.names.Virtual(reflected.ID, source, model.IndexFiltered)
	return ix, nil
}

// Join reassembles rows of reflected from indexes over its ancestors'
// tables. Sources are ordered root first; each contributes only the value
// columns no nearer-root source contributed. An explicit implementation
// column is skipped when reflected re-implements it in a closer type.
func (c *Composer) Join(reflected *model.TypeNode, sources []*model.Index) (*model.Index, error) {
	if len(sources) == 0 {
		return nil, internalErr(reflected.Name, "join without sources")
	}
	sorted := slices.Clone(sources)
	slices.SortStableFunc(sorted, func(a, b *model.Index) int {
		return c.originDepth(a) - c.originDepth(b)
	})
	head := sorted[0]
	keys, _, err := c.remapShape(reflected, head)
	if err != nil {
		return nil, err
	}
	var (
		values  []*model.Column
		mapping []model.ValueColumnMapping
	)
	for i, s := range sorted {
		from := c.m.Type(s.ReflectedType)
		var ords []int
		for j, vc := range s.ValueColumns {
			if c.overridden(reflected, vc) {
				continue
			}
			tc, ok := remap(reflected, from, vc)
			if !ok || isKeyColumn(keys, tc) || containsColumn(values, tc) {
				continue
			}
			values = append(values, tc)
			ords = append(ords, j)
		}
		mapping = append(mapping, model.ValueColumnMapping{Source: i, Columns: ords})
	}
	last := sorted[len(sorted)-1]
	ix := model.NewIndex(reflected.ID, virtualAttrs(head.Attributes), model.Joined{Map: mapping})
	ix.KeyColumns = keys
	ix.ValueColumns = values
	c.derive(ix, last, sorted...)
	ix.Name = c.names.Virtual(reflected.ID, last, model.IndexJoin)
	return ix, nil
}

// Union stacks the rows of sources. The first source shapes the key; value
// columns are those of every non-abstract source in reflected's column
// order. Abstract sources are dropped from the underlying list.
func (c *Composer) Union(reflected *model.TypeNode, sources []*model.Index) (*model.Index, error) {
	if len(sources) == 0 {
		return nil, internalErr(reflected.Name, "union without sources")
	}
	first := sources[0]
	keys, included, err := c.remapShape(reflected, first)
	if err != nil {
		return nil, err
	}
	var (
		underlying []*model.Index
		values     []*model.Column
	)
	for _, s := range sources {
		if s.IsAbstract() {
			continue
		}
		underlying = append(underlying, s)
		from := c.m.Type(s.ReflectedType)
		for _, vc := range s.ValueColumns {
			tc, ok := remap(reflected, from, vc)
			if ok && !isKeyColumn(keys, tc) && !containsColumn(values, tc) {
				values = append(values, tc)
			}
		}
	}
	if len(underlying) == 0 {
		return nil, internalErr(reflected.Name, "union over %s has no concrete sources", first.Name)
	}
	ix := model.NewIndex(reflected.ID, virtualAttrs(first.Attributes), model.Union{})
	ix.KeyColumns = keys
	ix.IncludedColumns = included
	ix.ValueColumns = canonicalOrder(reflected, values)
	c.derive(ix, first, underlying...)
	ix.Name = c.names.Virtual(reflected.ID, first, model.IndexUnion)
	return ix, nil
}

// View re-projects source into reflected's layout. Value columns follow
// reflected's column order; columns reflected cannot reach are dropped.
func (c *Composer) View(reflected *model.TypeNode, source *model.Index) (*model.Index, error) {
	keys, included, err := c.remapShape(reflected, source)
	if err != nil {
		return nil, err
	}
	from := c.m.Type(source.ReflectedType)
	sourceRow := source.Columns()
	ordinal := func(tc *model.Column) int {
		for i, sc := range sourceRow {
			if sameValue(reflected, from, tc, sc) {
				return i
			}
		}
		return -1
	}

	var values []*model.Column
	for _, tc := range reflected.Columns {
		if isKeyColumn(keys, tc) || ordinal(tc) < 0 {
			continue
		}
		values = append(values, tc)
	}
	sel := make([]int, 0, len(keys)+len(values))
	for _, k := range keys {
		sel = append(sel, ordinal(k.Column))
	}
	for _, v := range values {
		sel = append(sel, ordinal(v))
	}

	ix := model.NewIndex(reflected.ID, virtualAttrs(source.Attributes), model.View{Select: sel})
	ix.KeyColumns = keys
	ix.IncludedColumns = included
	ix.ValueColumns = values
	c.derive(ix, source, source)
	ix.Name = c.names.Virtual(reflected.ID, source, model.IndexView)
	return ix, nil
}

// derive links a virtual index to the index it ultimately composes.
func (c *Composer) derive(ix, origin *model.Index, underlying ...*model.Index) {
	ix.DeclaringType = origin.DeclaringType
	ix.DeclaringIndex = origin.DeclaringIndex
	ix.FillFactor = origin.FillFactor
	ix.Underlying = underlying
}

func (c *Composer) remapShape(reflected *model.TypeNode, source *model.Index) ([]model.KeyColumn, []*model.Column, error) {
	from := c.m.Type(source.ReflectedType)
	keys := make([]model.KeyColumn, 0, len(source.KeyColumns))
	for _, k := range source.KeyColumns {
		tc, ok := remap(reflected, from, k.Column)
		if !ok {
			return nil, nil, internalErr(reflected.Name,
				"key column %s of %s has no counterpart", k.Column.Name, source.Name)
		}
		keys = append(keys, model.KeyColumn{Column: tc, Direction: k.Direction})
	}
	var included []*model.Column
	for _, col := range source.IncludedColumns {
		if tc, ok := remap(reflected, from, col); ok {
			included = append(included, tc)
		}
	}
	return keys, included, nil
}

// originDepth is the hierarchy depth of the type whose real index ix
// composes.
func (c *Composer) originDepth(ix *model.Index) int {
	origin := ix.DeclaringIndex
	if origin == nil {
		origin = ix
	}
	t := c.m.Type(origin.ReflectedType)
	if !t.IsEntity() {
		return 0
	}
	return c.m.Depth(t.ID)
}

// overridden reports whether vc is an explicit implementation column that
// reflected replaces with one declared deeper in its ancestor chain.
func (c *Composer) overridden(reflected *model.TypeNode, vc *model.Column) bool {
	if !vc.ExplicitOverride {
		return false
	}
	f, ok := reflected.Field(vc.Field.Name)
	if !ok || !f.IsExplicit() || f.DeclaringType == vc.DeclaringType {
		return false
	}
	owner, declaring := c.m.Type(f.DeclaringType), c.m.Type(vc.DeclaringType)
	if !owner.IsEntity() || !declaring.IsEntity() {
		return false
	}
	return c.m.Depth(owner.ID) > c.m.Depth(declaring.ID)
}

func isKeyColumn(keys []model.KeyColumn, c *model.Column) bool {
	for _, k := range keys {
		if k.Column.SameAs(c) {
			return true
		}
	}
	return false
}

func canonicalOrder(t *model.TypeNode, cols []*model.Column) []*model.Column {
	out := make([]*model.Column, 0, len(cols))
	for _, tc := range t.Columns {
		if containsColumn(cols, tc) {
			out = append(out, tc)
		}
	}
	return out
}
