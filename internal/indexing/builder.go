package indexing

import (
	"log/slog"

	"github.com/roach88/polyindex/internal/model"
)

// Options configures a build.
type Options struct {
	// Logger receives build events. Nil means slog.Default().
	Logger *slog.Logger

	// MaxNameLength truncates longer index names with a hash suffix.
	// Zero leaves names alone.
	MaxNameLength int
}

// Warning is a non-fatal build finding.
type Warning struct {
	Type    string
	Index   string
	Message string
}

// Report summarizes a successful build.
type Report struct {
	Model          string
	Types          int
	RealIndexes    int
	VirtualIndexes int
	RemovedTyped   int
	Warnings       []Warning
}

// Build derives every index of m and locks it. On error m is left
// partially built and must be discarded.
func Build(m *model.Model, opts Options) (*Report, error) {
	if m.Locked() {
		return nil, internalErr("", "model %q is already built", m.Name)
	}
	b := newBuilder(m, opts)

	steps := []struct {
		name string
		run  func() error
	}{
		{"interface indexes", b.buildInterfaceIndexes},
		{"hierarchies", b.buildHierarchies},
		{"interface composition", b.composeInterfaces},
		{"typed cleanup", b.cleanupTyped},
		{"affected indexes", b.computeAffected},
		{"partial filters", b.compileFilters},
		{"clustered indexes", b.resolveClustered},
	}
	for _, step := range steps {
		b.log.Debug("build step", "model", m.Name, "step", step.name)
		if err := step.run(); err != nil {
			return nil, err
		}
	}

	m.Lock()
	b.summarize()
	b.log.Info("model built",
		"model", m.Name,
		"types", b.report.Types,
		"real_indexes", b.report.RealIndexes,
		"virtual_indexes", b.report.VirtualIndexes,
		"warnings", len(b.report.Warnings))
	return b.report, nil
}

// builder holds the state of one Build call.
type builder struct {
	m       *model.Model
	log     *slog.Logger
	names   *Namer
	compose *Composer
	report  *Report

	built   map[model.TypeID]bool
	tables  map[model.TypeID]*table
	untyped map[*model.Index]bool
}

func newBuilder(m *model.Model, opts Options) *builder {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	names := NewNamer(m, opts.MaxNameLength)
	return &builder{
		m:       m,
		log:     log,
		names:   names,
		compose: NewComposer(m, names),
		report:  &Report{Model: m.Name},
		built:   make(map[model.TypeID]bool),
		tables:  make(map[model.TypeID]*table),
		untyped: make(map[*model.Index]bool),
	}
}

// schemaBuilder derives the indexes of one hierarchy.
type schemaBuilder interface {
	buildType(t *model.TypeNode) error
	finish() error
}

func (b *builder) schemaBuilder(h *model.Hierarchy) schemaBuilder {
	switch h.Schema {
	case model.SingleTable:
		return &singleTableBuilder{b: b, h: h}
	case model.ConcreteTable:
		return &concreteTableBuilder{b: b, h: h}
	default:
		return &classTableBuilder{b: b, h: h}
	}
}

// buildHierarchies visits every hierarchy root first, breadth-first, so a
// type is always built after its ancestor.
func (b *builder) buildHierarchies() error {
	for _, h := range b.m.Hierarchies {
		sb := b.schemaBuilder(h)
		b.log.Debug("building hierarchy", "hierarchy", b.m.NameOf(h.Root), "schema", h.Schema.String())
		queue := []model.TypeID{h.Root}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if b.built[id] {
				continue
			}
			t := b.m.Type(id)
			b.log.Debug("building type", "hierarchy", b.m.NameOf(h.Root), "type", t.Name)
			if err := sb.buildType(t); err != nil {
				return err
			}
			b.built[id] = true
			queue = append(queue, t.Descendants...)
		}
		if err := sb.finish(); err != nil {
			return err
		}
	}
	return nil
}

// realIndex builds a stored index reflected on reflected from def. Fields
// are looked up on fieldOwner and mapped onto tbl.
func (b *builder) realIndex(reflected, fieldOwner *model.TypeNode, tbl *table, def *model.IndexDef, declaring model.TypeID, inheritedFrom *model.Index) (*model.Index, error) {
	attrs := model.AttrSecondary
	if def.Primary {
		attrs = model.AttrPrimary | model.AttrUnique
	}
	if def.Unique {
		attrs |= model.AttrUnique
	}
	if def.Clustered {
		attrs |= model.AttrClustered
	}
	if def.Filter != nil {
		attrs |= model.AttrPartial
	}
	ix := model.NewIndex(reflected.ID, attrs, model.Stored{})
	ix.DeclaringType = declaring
	ix.InheritedFrom = inheritedFrom
	ix.FillFactor = def.FillFactor
	ix.SetDef(def)

	label := def.Name
	if label == "" && def.Primary {
		label = "primary"
	}
	var keyCols []*model.Column
	for _, kf := range def.KeyFields {
		cols, err := b.resolveColumns(fieldOwner, tbl, label, kf.Field)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			if containsColumn(keyCols, c) {
				continue
			}
			keyCols = append(keyCols, c)
			ix.KeyColumns = append(ix.KeyColumns, model.KeyColumn{Column: c, Direction: kf.Direction})
		}
	}
	for _, name := range def.IncludedFields {
		cols, err := b.resolveColumns(fieldOwner, tbl, label, name)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			if !containsColumn(keyCols, c) && !containsColumn(ix.IncludedColumns, c) {
				ix.IncludedColumns = append(ix.IncludedColumns, c)
			}
		}
	}

	if def.Primary {
		for _, c := range tbl.columns {
			if !containsColumn(keyCols, c) {
				ix.ValueColumns = append(ix.ValueColumns, c)
			}
		}
	} else {
		add := func(c *model.Column) {
			if !containsColumn(keyCols, c) && !containsColumn(ix.ValueColumns, c) {
				ix.ValueColumns = append(ix.ValueColumns, c)
			}
		}
		for _, c := range tbl.primaryKey() {
			add(c)
		}
		for _, c := range ix.IncludedColumns {
			add(c)
		}
		for _, c := range tbl.columns {
			if c.System && c.Field.IsTypeID() {
				add(c)
			}
		}
	}
	ix.Name = b.names.Real(reflected.ID, ix)
	return ix, nil
}

// register adds ix to t's index set and real, non-abstract indexes to the
// model-wide list.
func (b *builder) register(t *model.TypeNode, ix *model.Index) error {
	if err := t.Indexes.Add(ix); err != nil {
		return buildErr(ErrDuplicateIndex, t.Name, ix.Name, "index name is already used on this type")
	}
	if ix.IsReal() && !ix.IsAbstract() {
		b.m.AddRealIndex(ix)
	}
	return nil
}

// addTyped registers a Typed sibling for each real index of t whose table
// has no TypeId column.
func (b *builder) addTyped(t *model.TypeNode) error {
	if b.tableOf(t).hasTypeID() {
		return nil
	}
	for _, ix := range t.Indexes.All() {
		if !ix.IsReal() || ix.ReflectedType != t.ID || b.untyped[ix] {
			continue
		}
		typed, err := b.compose.Typed(ix)
		if err != nil {
			return err
		}
		if err := b.register(t, typed); err != nil {
			return err
		}
		b.untyped[ix] = true
	}
	return nil
}

// withTyped returns the typed sibling of ix when there is one.
func withTyped(t *model.TypeNode, ix *model.Index) *model.Index {
	if typed := t.Indexes.TypedOf(ix); typed != nil {
		return typed
	}
	return ix
}

// concreteTypes returns t and its descendants, pre-order, without abstract
// types.
func (b *builder) concreteTypes(t *model.TypeNode) []model.TypeID {
	var out []model.TypeID
	for _, s := range b.m.Subtree(t.ID) {
		if !s.Abstract {
			out = append(out, s.ID)
		}
	}
	return out
}

func (b *builder) warn(t *model.TypeNode, index, msg string, args ...any) {
	b.log.Warn(msg, append([]any{"type", t.Name, "index", index}, args...)...)
	b.report.Warnings = append(b.report.Warnings, Warning{Type: t.Name, Index: index, Message: msg})
}

// ifaceIndex is an interface index inherited by an implementor.
type ifaceIndex struct {
	iface *model.TypeNode
	index *model.Index
}

// interfaceIndexes lists the secondary indexes t inherits from interfaces
// none of its ancestors implements.
func (b *builder) interfaceIndexes(t *model.TypeNode) []ifaceIndex {
	var out []ifaceIndex
	for _, iface := range b.m.Interfaces(t.ID) {
		if t.Ancestor != model.NoType && b.m.Implements(t.Ancestor, iface.ID) {
			continue
		}
		for _, ix := range iface.Indexes.All() {
			if ix.IsReal() && ix.IsSecondary() {
				out = append(out, ifaceIndex{iface: iface, index: ix})
			}
		}
	}
	return out
}

// implementedDef maps the fields of an interface index definition onto the
// fields implementing them in t.
func implementedDef(d *model.IndexDef, t *model.TypeNode, iface model.TypeID) *model.IndexDef {
	out := *d
	out.KeyFields = make([]model.KeyField, len(d.KeyFields))
	for i, kf := range d.KeyFields {
		out.KeyFields[i] = model.KeyField{Field: t.ImplementingField(iface, kf.Field), Direction: kf.Direction}
	}
	out.IncludedFields = make([]string, len(d.IncludedFields))
	for i, f := range d.IncludedFields {
		out.IncludedFields[i] = t.ImplementingField(iface, f)
	}
	return &out
}

func (b *builder) summarize() {
	r := b.report
	for _, t := range b.m.Types {
		if t.IsStructure() {
			continue
		}
		r.Types++
		for _, ix := range t.Indexes.All() {
			if ix.IsVirtual() {
				r.VirtualIndexes++
			}
		}
	}
	r.RealIndexes = len(b.m.RealIndexes)
}
