package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/modeldef"
)

// Validation error codes (E100-E129)
const (
	// Domain errors (E100-E109)
	ErrNoTypes            = "E100" // domain declares no types
	ErrDuplicateType      = "E101" // duplicate type or enum name
	ErrUnknownBase        = "E102" // base is not a declared entity
	ErrMissingHierarchy   = "E103" // root entity without hierarchy
	ErrMisplacedHierarchy = "E104" // hierarchy on a derived type or non-entity
	ErrEmptyKey           = "E105" // hierarchy declares no key fields
	ErrUnknownKeyField    = "E106" // hierarchy key names an undeclared field
	ErrDefinitionCycle    = "E107" // base, interface or key-reference cycle
	ErrUnknownInterface   = "E108" // implements names a non-interface
	ErrMaterializedEntity = "E109" // materialized set on a non-interface

	// Field errors (E110-E119)
	ErrInvalidFieldShape  = "E110" // not exactly one of type/enum/ref/struct
	ErrDuplicateField     = "E111" // duplicate field name within a type
	ErrUnknownEnum        = "E112" // enum field names an undeclared enum
	ErrUnknownRef         = "E113" // ref names a non-entity, non-interface
	ErrUnknownStruct      = "E114" // struct names a non-structure
	ErrEnumUnderlying     = "E115" // enum underlying type is not integral
	ErrDuplicateEnumValue = "E116" // duplicate enum member name
	ErrKeyOnEntityField   = "E117" // key flag outside an interface

	// Index errors (E120-E129)
	ErrDuplicateIndexName = "E120" // duplicate index name within a type
	ErrIndexNoKeys        = "E121" // index without key fields
	ErrEmptyIndexField    = "E122" // empty key or included field name
	ErrFillFactor         = "E123" // fill factor outside 0..100
	ErrFilterShape        = "E124" // filter without parameter or body
	ErrPrimaryOnDerived   = "E125" // primary index below the hierarchy root
)

// ValidationError represents a definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the structure of a compiled domain.
// Returns all errors found (does not fail-fast).
func Validate(d *modeldef.Domain) []ValidationError {
	v := &validator{d: d, kinds: make(map[string]model.TypeKind)}
	v.run()
	return v.errs
}

type validator struct {
	d     *modeldef.Domain
	kinds map[string]model.TypeKind
	enums map[string]bool
	errs  []ValidationError
}

func (v *validator) add(code, field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
}

func (v *validator) run() {
	if len(v.d.Types) == 0 {
		v.add(ErrNoTypes, "type", "domain %q declares no types", v.d.Name)
		return
	}

	v.enums = make(map[string]bool)
	for i, e := range v.d.Enums {
		path := fmt.Sprintf("enum.%s", e.Name)
		if v.enums[e.Name] {
			v.add(ErrDuplicateType, fmt.Sprintf("enums[%d].name", i), "duplicate enum name: %q", e.Name)
		}
		v.enums[e.Name] = true
		if !e.Underlying.IsNumeric() {
			v.add(ErrEnumUnderlying, path+".underlying", "enum underlying type must be integral, got %s", e.Underlying)
		}
		seen := make(map[string]bool)
		for _, m := range e.Values {
			if seen[m.Name] {
				v.add(ErrDuplicateEnumValue, path+".values", "duplicate enum member: %q", m.Name)
			}
			seen[m.Name] = true
		}
	}

	for i, t := range v.d.Types {
		if _, dup := v.kinds[t.Name]; dup || v.enums[t.Name] {
			v.add(ErrDuplicateType, fmt.Sprintf("types[%d].name", i), "duplicate type name: %q", t.Name)
		}
		v.kinds[t.Name] = t.Kind
	}

	for i := range v.d.Types {
		v.validateType(&v.d.Types[i])
	}
	for _, c := range AnalyzeCycles(v.d) {
		v.add(ErrDefinitionCycle, "type."+c.Path[0], "%s", c.Message)
	}
}

func (v *validator) validateType(t *modeldef.TypeDef) {
	path := "type." + t.Name

	if t.Materialized && t.Kind != model.KindInterface {
		v.add(ErrMaterializedEntity, path+".materialized", "only interfaces can be materialized")
	}
	for _, name := range t.Implements {
		if kind, ok := v.kinds[name]; !ok || kind != model.KindInterface {
			v.add(ErrUnknownInterface, path+".implements", "%q is not a declared interface", name)
		}
	}

	switch t.Kind {
	case model.KindEntity:
		v.validateEntity(t, path)
	case model.KindInterface:
		if t.Base != "" {
			v.add(ErrUnknownBase, path+".base", "interfaces inherit through implements, not base")
		}
		if t.Hierarchy != nil {
			v.add(ErrMisplacedHierarchy, path+".hierarchy", "interfaces do not declare a hierarchy")
		}
	case model.KindStructure:
		if t.Hierarchy != nil {
			v.add(ErrMisplacedHierarchy, path+".hierarchy", "structures do not declare a hierarchy")
		}
	}

	seen := make(map[string]bool)
	for _, f := range t.Fields {
		name := f.Name
		if f.Explicit != "" {
			name = f.Explicit + "." + f.Name
		}
		v.validateField(t, path+".fields."+name, f)
		if seen[name] {
			v.add(ErrDuplicateField, path+".fields."+name, "duplicate field name: %q", name)
		}
		seen[name] = true
	}

	names := make(map[string]bool)
	for i, ix := range t.Indexes {
		v.validateIndex(t, fmt.Sprintf("%s.index[%d]", path, i), ix)
		if ix.Name == "" {
			continue
		}
		if names[ix.Name] {
			v.add(ErrDuplicateIndexName, path+".index."+ix.Name, "duplicate index name: %q", ix.Name)
		}
		names[ix.Name] = true
	}
}

func (v *validator) validateEntity(t *modeldef.TypeDef, path string) {
	if t.Base != "" {
		if kind, ok := v.kinds[t.Base]; !ok || kind != model.KindEntity {
			v.add(ErrUnknownBase, path+".base", "base %q is not a declared entity", t.Base)
		}
		if t.Hierarchy != nil {
			v.add(ErrMisplacedHierarchy, path+".hierarchy", "only hierarchy roots declare a hierarchy")
		}
		return
	}
	if t.Hierarchy == nil {
		v.add(ErrMissingHierarchy, path+".hierarchy", "root entity %q must declare a hierarchy", t.Name)
		return
	}
	if len(t.Hierarchy.Key) == 0 {
		v.add(ErrEmptyKey, path+".hierarchy.key", "hierarchy key must name at least one field")
	}
	for _, k := range t.Hierarchy.Key {
		if !declares(t, k) {
			v.add(ErrUnknownKeyField, path+".hierarchy.key", "key field %q is not declared by %s", k, t.Name)
		}
	}
}

func (v *validator) validateField(t *modeldef.TypeDef, path string, f modeldef.FieldDef) {
	shapes := 0
	for _, set := range []bool{f.Type != model.TypeNone, f.Enum != "", f.Ref != "", f.Struct != ""} {
		if set {
			shapes++
		}
	}
	if shapes != 1 {
		v.add(ErrInvalidFieldShape, path, "field must set exactly one of type, enum, ref and struct")
	}
	if f.Enum != "" && !v.enums[f.Enum] {
		v.add(ErrUnknownEnum, path+".enum", "unknown enum %q", f.Enum)
	}
	if f.Ref != "" {
		if kind, ok := v.kinds[f.Ref]; !ok || kind == model.KindStructure {
			v.add(ErrUnknownRef, path+".ref", "%q is not a declared entity or interface", f.Ref)
		}
	}
	if f.Struct != "" {
		if kind, ok := v.kinds[f.Struct]; !ok || kind != model.KindStructure {
			v.add(ErrUnknownStruct, path+".struct", "%q is not a declared structure", f.Struct)
		}
	}
	if f.Key && t.Kind != model.KindInterface {
		v.add(ErrKeyOnEntityField, path+".key", "entity keys are declared by the hierarchy")
	}
}

func (v *validator) validateIndex(t *modeldef.TypeDef, path string, ix model.IndexDef) {
	if ix.Name != "" {
		path = fmt.Sprintf("type.%s.index.%s", t.Name, ix.Name)
	}
	if len(ix.KeyFields) == 0 {
		v.add(ErrIndexNoKeys, path+".keys", "index must have at least one key field")
	}
	for _, k := range ix.KeyFields {
		if strings.TrimSpace(k.Field) == "" {
			v.add(ErrEmptyIndexField, path+".keys", "empty key field name")
		}
	}
	for _, f := range ix.IncludedFields {
		if strings.TrimSpace(f) == "" {
			v.add(ErrEmptyIndexField, path+".include", "empty included field name")
		}
	}
	if ix.FillFactor < 0 || ix.FillFactor > 100 {
		v.add(ErrFillFactor, path+".fill_factor", "fill factor must be within 0..100, got %d", ix.FillFactor)
	}
	if ix.Filter != nil && (ix.Filter.Param == "" || ix.Filter.Body == nil) {
		v.add(ErrFilterShape, path+".filter", "filter needs a parameter and a body")
	}
	if ix.Primary && t.Base != "" {
		v.add(ErrPrimaryOnDerived, path+".primary", "only hierarchy roots declare a primary index")
	}
}

func declares(t *modeldef.TypeDef, name string) bool {
	for _, f := range t.Fields {
		if f.Name == name && f.Explicit == "" {
			return true
		}
	}
	return false
}
