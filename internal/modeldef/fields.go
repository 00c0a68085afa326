package modeldef

import (
	"github.com/roach88/polyindex/internal/model"
)

func (r *resolver) fields() error {
	for _, t := range r.m.Types {
		if err := r.resolveFields(t); err != nil {
			return err
		}
	}
	return nil
}

// resolveFields flattens the field list of t after its ancestor and base
// interfaces.
func (r *resolver) resolveFields(t *model.TypeNode) error {
	if r.done[t.ID] {
		return nil
	}
	if r.visiting[t.ID] {
		return errorf(t.Name, "", "field resolution cycle")
	}
	r.visiting[t.ID] = true
	defer delete(r.visiting, t.ID)

	def := r.defs[t.ID]
	var own []*model.Field
	for _, fd := range def.Fields {
		f, err := r.newField(t, fd, nil)
		if err != nil {
			return err
		}
		own = append(own, f)
	}

	var ordered []*model.Field
	switch {
	case t.IsEntity() && t.Ancestor != model.NoType:
		parent := r.m.Type(t.Ancestor)
		if err := r.resolveFields(parent); err != nil {
			return err
		}
		reimplemented := make(map[string]bool)
		for _, f := range own {
			if f.IsExplicit() {
				reimplemented[f.Name] = true
			}
		}
		for _, f := range parent.Fields {
			if !f.IsTopLevel() {
				continue
			}
			// an explicit implementation declared again replaces the inherited one
			if f.IsExplicit() && reimplemented[f.Name] {
				continue
			}
			ordered = append(ordered, inherit(f, nil))
		}
		ordered = append(ordered, own...)

	case t.IsEntity():
		keys, rest, err := splitKeys(t, own, t.Hierarchy.Key.Fields)
		if err != nil {
			return err
		}
		ordered = append(keys, typeIDField(t))
		ordered = append(ordered, rest...)

	case t.IsInterface():
		var inherited []*model.Field
		seen := make(map[string]bool)
		for _, baseID := range t.Interfaces {
			base := r.m.Type(baseID)
			if err := r.resolveFields(base); err != nil {
				return err
			}
			for _, f := range base.Fields {
				if !f.IsTopLevel() || f.IsTypeID() || seen[f.Name] {
					continue
				}
				seen[f.Name] = true
				inherited = append(inherited, inherit(f, nil))
			}
		}
		var keyNames []string
		for _, f := range inherited {
			if f.PrimaryKey {
				keyNames = append(keyNames, f.Name)
			}
		}
		for i, fd := range def.Fields {
			if seen[own[i].Name] {
				return errorf(t.Name, own[i].Name, "redeclares a base interface field")
			}
			if fd.Key {
				keyNames = append(keyNames, own[i].Name)
			}
		}
		keys, rest, err := splitKeys(t, append(inherited, own...), keyNames)
		if err != nil {
			return err
		}
		ordered = keys
		if len(keys) > 0 {
			ordered = append(ordered, typeIDField(t))
		}
		ordered = append(ordered, rest...)

	default:
		ordered = own
	}

	for _, f := range ordered {
		if err := addTree(t, f); err != nil {
			return err
		}
	}
	r.done[t.ID] = true
	return nil
}

// newField expands a definition into a field tree owned by owner.
func (r *resolver) newField(owner *model.TypeNode, fd FieldDef, parent *model.Field) (*model.Field, error) {
	name := fd.Name
	explicit := model.NoType
	if fd.Explicit != "" {
		iface, ok := r.m.Lookup(fd.Explicit)
		if !ok || !iface.IsInterface() {
			return nil, errorf(owner.Name, fd.Name, "explicit implementation of unknown interface %q", fd.Explicit)
		}
		explicit = iface.ID
		name = fd.Explicit + "." + fd.Name
	}
	if parent != nil {
		name = parent.Name + "." + name
	}
	if name == model.TypeIDFieldName && parent == nil {
		return nil, errorf(owner.Name, fd.Name, "field name is reserved")
	}

	shapes := 0
	for _, set := range []bool{fd.Type != model.TypeNone, fd.Enum != "", fd.Ref != "", fd.Struct != ""} {
		if set {
			shapes++
		}
	}
	if shapes != 1 {
		return nil, errorf(owner.Name, name, "field needs exactly one of type, enum, ref or struct")
	}

	f := &model.Field{
		Name:              name,
		Type:              fd.Type,
		RefType:           model.NoType,
		StructType:        model.NoType,
		DeclaringType:     owner.ID,
		ExplicitInterface: explicit,
		Parent:            parent,
		Nullable:          fd.Nullable,
	}
	if parent != nil {
		f.ExplicitInterface = parent.ExplicitInterface
		f.Nullable = f.Nullable || parent.Nullable
	}

	switch {
	case fd.Enum != "":
		e, ok := r.enums[fd.Enum]
		if !ok {
			return nil, errorf(owner.Name, name, "unknown enum %q", fd.Enum)
		}
		f.EnumType = e.Name
		f.Type = e.Underlying
		f.Column = leafColumn(owner, f)

	case fd.Type != model.TypeNone:
		f.Column = leafColumn(owner, f)

	case fd.Ref != "":
		target, ok := r.m.Lookup(fd.Ref)
		if !ok || target.IsStructure() {
			return nil, errorf(owner.Name, name, "reference to unknown entity or interface %q", fd.Ref)
		}
		f.RefType = target.ID
		guard := "ref:" + target.Name
		if r.inflight[guard] {
			return nil, errorf(owner.Name, name, "reference key cycle through %q", target.Name)
		}
		r.inflight[guard] = true
		defer delete(r.inflight, guard)
		keys, err := r.keyFieldDefs(target)
		if err != nil {
			return nil, err
		}
		for _, kd := range keys {
			kd.Key = false
			kd.Explicit = ""
			child, err := r.newField(owner, kd, f)
			if err != nil {
				return nil, err
			}
			f.Children = append(f.Children, child)
		}

	case fd.Struct != "":
		target, ok := r.m.Lookup(fd.Struct)
		if !ok || !target.IsStructure() {
			return nil, errorf(owner.Name, name, "unknown structure %q", fd.Struct)
		}
		f.StructType = target.ID
		guard := "struct:" + target.Name
		if r.inflight[guard] {
			return nil, errorf(owner.Name, name, "structure %q contains itself", target.Name)
		}
		r.inflight[guard] = true
		defer delete(r.inflight, guard)
		for _, sd := range r.defs[target.ID].Fields {
			child, err := r.newField(owner, sd, f)
			if err != nil {
				return nil, err
			}
			f.Children = append(f.Children, child)
		}
	}
	return f, nil
}

// keyFieldDefs returns the key field definitions a reference to target
// expands to.
func (r *resolver) keyFieldDefs(target *model.TypeNode) ([]FieldDef, error) {
	if target.IsEntity() {
		root := target
		for root.Ancestor != model.NoType {
			root = r.m.Type(root.Ancestor)
		}
		rootDef := r.defs[root.ID]
		if rootDef.Hierarchy == nil {
			return nil, errorf(root.Name, "", "hierarchy root has no hierarchy definition")
		}
		var out []FieldDef
		for _, k := range rootDef.Hierarchy.Key {
			fd, ok := findFieldDef(rootDef, k)
			if !ok {
				return nil, errorf(root.Name, k, "key field is not declared")
			}
			out = append(out, fd)
		}
		return out, nil
	}

	var out []FieldDef
	seen := make(map[string]bool)
	var collect func(*model.TypeNode)
	collect = func(iface *model.TypeNode) {
		for _, base := range iface.Interfaces {
			collect(r.m.Type(base))
		}
		for _, fd := range r.defs[iface.ID].Fields {
			if fd.Key && !seen[fd.Name] {
				seen[fd.Name] = true
				out = append(out, fd)
			}
		}
	}
	collect(target)
	if len(out) == 0 {
		return nil, errorf(target.Name, "", "referenced interface declares no key fields")
	}
	return out, nil
}

func findFieldDef(def *TypeDef, name string) (FieldDef, bool) {
	for _, fd := range def.Fields {
		if fd.Name == name && fd.Explicit == "" {
			return fd, true
		}
	}
	return FieldDef{}, false
}

// splitKeys moves the named key fields to the front in key order and marks
// them and their columns as primary key.
func splitKeys(t *model.TypeNode, fields []*model.Field, keyNames []string) (keys, rest []*model.Field, err error) {
	byName := make(map[string]*model.Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	isKey := make(map[string]bool, len(keyNames))
	for _, k := range keyNames {
		f, ok := byName[k]
		if !ok {
			return nil, nil, errorf(t.Name, k, "key field is not declared")
		}
		markPrimaryKey(f)
		keys = append(keys, f)
		isKey[k] = true
	}
	for _, f := range fields {
		if !isKey[f.Name] {
			rest = append(rest, f)
		}
	}
	return keys, rest, nil
}

func markPrimaryKey(f *model.Field) {
	f.PrimaryKey = true
	f.Nullable = false
	if f.Column != nil {
		f.Column.PrimaryKey = true
		f.Column.Nullable = false
	}
	for _, c := range f.Children {
		markPrimaryKey(c)
	}
}

func leafColumn(owner *model.TypeNode, f *model.Field) *model.Column {
	return &model.Column{
		Name:             f.Name,
		Field:            f,
		Type:             f.Type,
		Declared:         true,
		ExplicitOverride: f.ExplicitInterface != model.NoType,
		Nullable:         f.Nullable,
		DeclaringType:    owner.ID,
	}
}

func typeIDField(t *model.TypeNode) *model.Field {
	f := &model.Field{
		Name:              model.TypeIDFieldName,
		Type:              model.TypeInt32,
		RefType:           model.NoType,
		StructType:        model.NoType,
		DeclaringType:     t.ID,
		ExplicitInterface: model.NoType,
		System:            true,
	}
	f.Column = &model.Column{
		Name:          f.Name,
		Field:         f,
		Type:          f.Type,
		System:        true,
		Declared:      true,
		DeclaringType: t.ID,
	}
	return f
}

// inherit deep-copies an ancestor's field tree for a descendant. Copies keep
// their declaring type; their columns are no longer declared locally.
func inherit(f *model.Field, parent *model.Field) *model.Field {
	clone := *f
	clone.Inherited = true
	clone.Parent = parent
	clone.Children = nil
	if f.Column != nil {
		col := *f.Column
		col.Declared = false
		col.Field = &clone
		clone.Column = &col
	}
	for _, c := range f.Children {
		clone.Children = append(clone.Children, inherit(c, &clone))
	}
	return &clone
}

func addTree(t *model.TypeNode, f *model.Field) error {
	if _, dup := t.Field(f.Name); dup {
		return errorf(t.Name, f.Name, "duplicate field")
	}
	t.AddField(f)
	for _, c := range f.Children {
		if err := addTree(t, c); err != nil {
			return err
		}
	}
	return nil
}

// interfaceMaps records, for every entity and every interface it
// implements, which field implements each interface field.
func (r *resolver) interfaceMaps() error {
	for _, t := range r.m.Entities() {
		for _, iface := range r.m.Interfaces(t.ID) {
			mapping := make(map[string]string)
			for _, f := range iface.Fields {
				if !f.IsTopLevel() {
					continue
				}
				explicit := iface.Name + "." + f.Name
				switch {
				case hasField(t, explicit):
					mapping[f.Name] = explicit
				case hasField(t, f.Name):
					mapping[f.Name] = f.Name
				default:
					return errorf(t.Name, f.Name, "does not implement field of interface %s", iface.Name)
				}
			}
			t.InterfaceMap[iface.ID] = mapping
		}
	}
	return nil
}

func hasField(t *model.TypeNode, name string) bool {
	_, ok := t.Field(name)
	return ok
}
