package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/modeldef"
)

// CompileDomain parses a CUE value holding `enum` and `type` structs into a
// Domain. The domain is named by its `name` field, or else by the value's
// last path selector.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	d, err := CompileDomain(v)
func CompileDomain(v cue.Value) (*modeldef.Domain, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	d := &modeldef.Domain{}
	if name, ok, err := optionalString(v, "name"); err != nil {
		return nil, err
	} else if ok {
		d.Name = name
	} else if labels := v.Path().Selectors(); len(labels) > 0 {
		d.Name = labels[len(labels)-1].String()
	}

	enums, err := parseEnums(v)
	if err != nil {
		return nil, err
	}
	d.Enums = enums

	typesVal := v.LookupPath(cue.ParsePath("type"))
	if !typesVal.Exists() {
		return d, nil
	}
	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		td, err := parseType(d, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		d.Types = append(d.Types, *td)
	}
	return d, nil
}

func parseEnums(v cue.Value) ([]modeldef.EnumDef, error) {
	enumVal := v.LookupPath(cue.ParsePath("enum"))
	if !enumVal.Exists() {
		return nil, nil
	}
	iter, err := enumVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var enums []modeldef.EnumDef
	for iter.Next() {
		name, ev := iter.Label(), iter.Value()
		def := modeldef.EnumDef{Name: name, Underlying: model.TypeInt32}

		if u, ok, err := optionalString(ev, "underlying"); err != nil {
			return nil, err
		} else if ok {
			vt, err := model.ParseValueType(u)
			if err != nil {
				return nil, &CompileError{Field: "enum." + name + ".underlying", Message: err.Error(), Pos: ev.Pos()}
			}
			def.Underlying = vt
		}

		valuesVal := ev.LookupPath(cue.ParsePath("values"))
		if !valuesVal.Exists() {
			return nil, &CompileError{Field: "enum." + name + ".values", Message: "enum values are required", Pos: ev.Pos()}
		}
		vi, err := valuesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for vi.Next() {
			n, err := intValue(vi.Value(), "enum."+name+"."+vi.Label())
			if err != nil {
				return nil, err
			}
			def.Values = append(def.Values, modeldef.EnumValue{Name: vi.Label(), Value: n})
		}
		enums = append(enums, def)
	}
	return enums, nil
}

func parseType(d *modeldef.Domain, name string, v cue.Value) (*modeldef.TypeDef, error) {
	path := "type." + name
	td := &modeldef.TypeDef{Name: name}

	kind, ok, err := optionalString(v, "kind")
	if err != nil {
		return nil, err
	}
	if !ok {
		kind = "entity"
	}
	if td.Kind, err = model.ParseTypeKind(kind); err != nil {
		return nil, &CompileError{Field: path + ".kind", Message: err.Error(), Pos: v.Pos()}
	}

	if td.Abstract, err = optionalBool(v, "abstract"); err != nil {
		return nil, err
	}
	if td.Materialized, err = optionalBool(v, "materialized"); err != nil {
		return nil, err
	}
	if td.Base, _, err = optionalString(v, "base"); err != nil {
		return nil, err
	}
	if td.Implements, err = stringList(v, "implements"); err != nil {
		return nil, err
	}
	if td.NonPersistent, err = stringList(v, "non_persistent"); err != nil {
		return nil, err
	}

	if hv := v.LookupPath(cue.ParsePath("hierarchy")); hv.Exists() {
		h, err := parseHierarchy(path, hv)
		if err != nil {
			return nil, err
		}
		td.Hierarchy = h
	}

	if fv := v.LookupPath(cue.ParsePath("fields")); fv.Exists() {
		iter, err := fv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			f, err := parseField(path, iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			td.Fields = append(td.Fields, f)
		}
	}

	if iv := v.LookupPath(cue.ParsePath("index")); iv.Exists() {
		iter, err := iv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			ix, err := parseIndex(d, path, iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			td.Indexes = append(td.Indexes, ix)
		}
	}
	return td, nil
}

func parseHierarchy(path string, v cue.Value) (*modeldef.HierarchyDef, error) {
	h := &modeldef.HierarchyDef{}
	schema, ok, err := optionalString(v, "schema")
	if err != nil {
		return nil, err
	}
	if !ok {
		schema = model.ClassTable.String()
	}
	if h.Schema, err = model.ParseInheritanceSchema(schema); err != nil {
		return nil, &CompileError{Field: path + ".hierarchy.schema", Message: err.Error(), Pos: v.Pos()}
	}
	if h.Key, err = stringList(v, "key"); err != nil {
		return nil, err
	}
	if h.Generator, _, err = optionalString(v, "generator"); err != nil {
		return nil, err
	}
	return h, nil
}

// parseField reads one field. A label "IFace.Name" declares an explicit
// implementation of IFace's field Name.
func parseField(typePath, label string, v cue.Value) (modeldef.FieldDef, error) {
	path := typePath + ".fields." + label
	label = strings.Trim(label, `"`)
	f := modeldef.FieldDef{Name: label}
	if i := strings.LastIndex(label, "."); i > 0 {
		f.Explicit, f.Name = label[:i], label[i+1:]
	}

	typeName, hasType, err := optionalString(v, "type")
	if err != nil {
		return f, err
	}
	if hasType {
		if isFloatType(typeName) {
			return f, &CompileError{Field: path + ".type", Message: "float types are forbidden - use int or a scaled integer instead", Pos: v.Pos()}
		}
		if f.Type, err = model.ParseValueType(typeName); err != nil {
			return f, &CompileError{Field: path + ".type", Message: err.Error(), Pos: v.Pos()}
		}
	}
	if f.Enum, _, err = optionalString(v, "enum"); err != nil {
		return f, err
	}
	if f.Ref, _, err = optionalString(v, "ref"); err != nil {
		return f, err
	}
	if f.Struct, _, err = optionalString(v, "struct"); err != nil {
		return f, err
	}
	if f.Nullable, err = optionalBool(v, "nullable"); err != nil {
		return f, err
	}
	if f.Key, err = optionalBool(v, "key"); err != nil {
		return f, err
	}
	return f, nil
}

func parseIndex(d *modeldef.Domain, typePath, name string, v cue.Value) (model.IndexDef, error) {
	path := typePath + ".index." + name
	def := model.IndexDef{Name: name}

	keys, err := stringList(v, "keys")
	if err != nil {
		return def, err
	}
	for _, k := range keys {
		kf := model.KeyField{Field: k}
		if rest, ok := strings.CutPrefix(k, "-"); ok {
			kf = model.KeyField{Field: rest, Direction: model.Descending}
		}
		def.KeyFields = append(def.KeyFields, kf)
	}
	if def.IncludedFields, err = stringList(v, "include"); err != nil {
		return def, err
	}
	if def.Primary, err = optionalBool(v, "primary"); err != nil {
		return def, err
	}
	if def.Unique, err = optionalBool(v, "unique"); err != nil {
		return def, err
	}
	if def.Clustered, err = optionalBool(v, "clustered"); err != nil {
		return def, err
	}
	if ff := v.LookupPath(cue.ParsePath("fill_factor")); ff.Exists() {
		n, err := intValue(ff, path+".fill_factor")
		if err != nil {
			return def, err
		}
		def.FillFactor = int(n)
	}
	if fv := v.LookupPath(cue.ParsePath("filter")); fv.Exists() {
		lambda, err := parseLambda(d, path+".filter", fv)
		if err != nil {
			return def, err
		}
		def.Filter = lambda
	}
	return def, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func intValue(v cue.Value, path string) (int64, error) {
	switch v.IncompleteKind() {
	case cue.FloatKind, cue.NumberKind:
		return 0, &CompileError{Field: path, Message: "float values are forbidden - use int instead", Pos: v.Pos()}
	}
	n, err := v.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func isFloatType(t string) bool {
	switch strings.ToLower(t) {
	case "float", "float32", "float64", "number", "double", "decimal":
		return true
	}
	return false
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
