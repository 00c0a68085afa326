package modeldef

import (
	"github.com/roach88/polyindex/internal/model"
)

// FirstDiscriminator is the TypeId stored for the first entity of the
// first hierarchy. Later entities count up from it in pre-order.
const FirstDiscriminator = 100

// Resolve builds the resolved model for d. The returned model carries no
// indexes yet; indexing.Build derives them.
func Resolve(d *Domain) (*model.Model, error) {
	r := &resolver{
		domain:   d,
		m:        model.New(d.Name),
		defs:     make(map[model.TypeID]*TypeDef),
		enums:    make(map[string]*EnumDef),
		done:     make(map[model.TypeID]bool),
		visiting: make(map[model.TypeID]bool),
		inflight: make(map[string]bool),
	}
	steps := []func() error{
		r.declareEnums,
		r.declareTypes,
		r.link,
		r.checkCycles,
		r.hierarchies,
		r.fields,
		r.interfaceMaps,
		r.indexDefs,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return r.m, nil
}

type resolver struct {
	domain *Domain
	m      *model.Model
	defs   map[model.TypeID]*TypeDef
	enums  map[string]*EnumDef

	done     map[model.TypeID]bool
	visiting map[model.TypeID]bool

	// inflight guards structure and reference expansion against cycles.
	inflight map[string]bool
}

func (r *resolver) declareEnums() error {
	for i := range r.domain.Enums {
		e := &r.domain.Enums[i]
		if _, dup := r.enums[e.Name]; dup {
			return errorf(e.Name, "", "duplicate enum")
		}
		if !e.Underlying.IsNumeric() {
			return errorf(e.Name, "", "enum underlying type %s is not integral", e.Underlying)
		}
		r.enums[e.Name] = e
	}
	return nil
}

func (r *resolver) declareTypes() error {
	for i := range r.domain.Types {
		def := &r.domain.Types[i]
		if def.Name == "" {
			return errorf("", "", "type %d has no name", i)
		}
		if def.Materialized && def.Kind != model.KindInterface {
			return errorf(def.Name, "", "only interfaces can be materialized")
		}
		t := model.NewTypeNode(def.Name, def.Kind)
		t.Abstract = def.Abstract
		t.Materialized = def.Materialized
		t.NonPersistent = append([]string(nil), def.NonPersistent...)
		id, err := r.m.AddType(t)
		if err != nil {
			return errorf(def.Name, "", "%v", err)
		}
		r.defs[id] = def
	}
	return nil
}

func (r *resolver) link() error {
	for _, t := range r.m.Types {
		def := r.defs[t.ID]
		if def.Base != "" {
			base, ok := r.m.Lookup(def.Base)
			if !ok {
				return errorf(t.Name, "", "unknown base type %q", def.Base)
			}
			if !t.IsEntity() || !base.IsEntity() {
				return errorf(t.Name, "", "only entities derive from entities (base %q)", def.Base)
			}
			t.Ancestor = base.ID
			base.Descendants = append(base.Descendants, t.ID)
		}
		for _, name := range def.Implements {
			iface, ok := r.m.Lookup(name)
			if !ok {
				return errorf(t.Name, "", "unknown interface %q", name)
			}
			if !iface.IsInterface() {
				return errorf(t.Name, "", "%q is not an interface", name)
			}
			if t.IsStructure() {
				return errorf(t.Name, "", "structures cannot implement interfaces")
			}
			t.Interfaces = append(t.Interfaces, iface.ID)
			if t.IsEntity() {
				iface.Implementors = append(iface.Implementors, t.ID)
			}
		}
	}
	return nil
}

func (r *resolver) checkCycles() error {
	limit := len(r.m.Types)
	for _, t := range r.m.Types {
		steps := 0
		for a := t.Ancestor; a != model.NoType; a = r.m.Type(a).Ancestor {
			if steps++; steps > limit {
				return errorf(t.Name, "", "inheritance cycle")
			}
		}
	}
	state := make(map[model.TypeID]int)
	var visit func(model.TypeID) error
	visit = func(id model.TypeID) error {
		switch state[id] {
		case 1:
			return errorf(r.m.NameOf(id), "", "interface inheritance cycle")
		case 2:
			return nil
		}
		state[id] = 1
		for _, base := range r.m.Type(id).Interfaces {
			if err := visit(base); err != nil {
				return err
			}
		}
		state[id] = 2
		return nil
	}
	for _, t := range r.m.InterfaceTypes() {
		if err := visit(t.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) hierarchies() error {
	next := FirstDiscriminator
	for _, t := range r.m.Entities() {
		def := r.defs[t.ID]
		if t.Ancestor != model.NoType {
			if def.Hierarchy != nil {
				return errorf(t.Name, "", "only hierarchy roots configure a hierarchy")
			}
			continue
		}
		if def.Hierarchy == nil {
			return errorf(t.Name, "", "hierarchy root has no hierarchy definition")
		}
		if len(def.Hierarchy.Key) == 0 {
			return errorf(t.Name, "", "hierarchy has no key fields")
		}
		h := &model.Hierarchy{
			Root:   t.ID,
			Schema: def.Hierarchy.Schema,
			Key: model.KeyDescriptor{
				Fields:         append([]string(nil), def.Hierarchy.Key...),
				Generator:      def.Hierarchy.Generator,
				Discriminators: make(map[model.TypeID]int),
			},
		}
		for _, member := range r.m.Subtree(t.ID) {
			h.Types = append(h.Types, member.ID)
			h.Key.Discriminators[member.ID] = next
			next++
			member.Hierarchy = h
		}
		r.m.Hierarchies = append(r.m.Hierarchies, h)
	}
	return nil
}

func (r *resolver) indexDefs() error {
	for _, t := range r.m.Types {
		def := r.defs[t.ID]
		primaries := 0
		for _, ix := range def.Indexes {
			if ix.Primary {
				primaries++
			}
		}
		switch {
		case t.IsStructure() && len(def.Indexes) > 0:
			return errorf(t.Name, "", "structures cannot declare indexes")
		case primaries > 1:
			return errorf(t.Name, "", "more than one primary index")
		case primaries == 1 && t.IsEntity() && t.Ancestor != model.NoType:
			return errorf(t.Name, "", "only hierarchy roots declare a primary index")
		}
		if t.IsStructure() {
			continue
		}

		keys := t.KeyColumns()
		if t.IsInterface() && len(keys) == 0 {
			if len(def.Indexes) > 0 || len(t.Implementors) > 0 || t.Materialized {
				return errorf(t.Name, "", "interface declares no key fields")
			}
			continue
		}

		needPrimary := primaries == 0 && (t.IsInterface() || t.Ancestor == model.NoType)
		if needPrimary {
			t.IndexDefs = append(t.IndexDefs, primaryDef(t))
		}
		for _, ix := range def.Indexes {
			t.IndexDefs = append(t.IndexDefs, copyIndexDef(ix))
		}
	}
	return nil
}

func primaryDef(t *model.TypeNode) model.IndexDef {
	d := model.IndexDef{Primary: true, Unique: true, Clustered: true}
	for _, f := range t.Fields {
		if f.IsTopLevel() && f.PrimaryKey {
			d.KeyFields = append(d.KeyFields, model.KeyField{Field: f.Name})
		}
	}
	return d
}

func copyIndexDef(d model.IndexDef) model.IndexDef {
	d.KeyFields = append([]model.KeyField(nil), d.KeyFields...)
	d.IncludedFields = append([]string(nil), d.IncludedFields...)
	return d
}
