package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/polyindex/internal/modeldef"
	"github.com/roach88/polyindex/internal/predicate"
)

// Filter body nodes are structs with exactly one of these keys.
var exprKeys = []string{
	"field", "const", "null", "enum",
	"eq", "ne", "lt", "le", "gt", "ge",
	"and", "or", "not", "lambda", "call",
}

var compareOps = map[string]predicate.CompareOp{
	"eq": predicate.OpEq,
	"ne": predicate.OpNe,
	"lt": predicate.OpLt,
	"le": predicate.OpLe,
	"gt": predicate.OpGt,
	"ge": predicate.OpGe,
}

// parseLambda reads a filter: {param: "e", body: {...}}. The parameter
// defaults to "e".
func parseLambda(d *modeldef.Domain, path string, v cue.Value) (*predicate.Lambda, error) {
	param, ok, err := optionalString(v, "param")
	if err != nil {
		return nil, err
	}
	if !ok {
		param = "e"
	}
	bv := v.LookupPath(cue.ParsePath("body"))
	if !bv.Exists() {
		return nil, &CompileError{Field: path + ".body", Message: "filter body is required", Pos: v.Pos()}
	}
	p := &exprParser{d: d, param: param}
	body, err := p.parse(path+".body", bv)
	if err != nil {
		return nil, err
	}
	return &predicate.Lambda{Param: param, Body: body}, nil
}

type exprParser struct {
	d     *modeldef.Domain
	param string
}

func (p *exprParser) parse(path string, v cue.Value) (predicate.Expr, error) {
	key, arg, err := p.node(path, v)
	if err != nil {
		return nil, err
	}
	path += "." + key

	switch key {
	case "field":
		s, err := arg.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if strings.TrimSpace(s) == "" {
			return nil, &CompileError{Field: path, Message: "field path is empty", Pos: arg.Pos()}
		}
		return predicate.Field(p.param, s), nil

	case "const":
		val, err := literal(path, arg)
		if err != nil {
			return nil, err
		}
		return predicate.Lit(val), nil

	case "null":
		return predicate.Lit(predicate.Null{}), nil

	case "enum":
		val, err := p.enum(path, arg)
		if err != nil {
			return nil, err
		}
		return predicate.Lit(val), nil

	case "eq", "ne", "lt", "le", "gt", "ge":
		operands, err := p.list(path, arg)
		if err != nil {
			return nil, err
		}
		if len(operands) != 2 {
			return nil, &CompileError{Field: path, Message: fmt.Sprintf("comparison takes 2 operands, got %d", len(operands)), Pos: arg.Pos()}
		}
		return predicate.Cmp(compareOps[key], operands[0], operands[1]), nil

	case "and", "or":
		operands, err := p.list(path, arg)
		if err != nil {
			return nil, err
		}
		if len(operands) == 0 {
			return nil, &CompileError{Field: path, Message: "needs at least one operand", Pos: arg.Pos()}
		}
		if key == "and" {
			return predicate.And(operands...), nil
		}
		return predicate.Or(operands...), nil

	case "not":
		inner, err := p.parse(path, arg)
		if err != nil {
			return nil, err
		}
		return &predicate.Not{Operand: inner}, nil

	case "lambda":
		// nested lambdas are representable so the index builder can reject
		// them with the index name attached
		inner, err := parseLambda(p.d, path, arg)
		if err != nil {
			return nil, err
		}
		return inner, nil

	case "call":
		method, ok, err := optionalString(arg, "method")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &CompileError{Field: path + ".method", Message: "method is required", Pos: arg.Pos()}
		}
		call := &predicate.Call{Method: method}
		if av := arg.LookupPath(cue.ParsePath("args")); av.Exists() {
			if call.Args, err = p.list(path+".args", av); err != nil {
				return nil, err
			}
		}
		return call, nil
	}
	return nil, &CompileError{Field: path, Message: "unsupported filter node", Pos: v.Pos()}
}

// node returns the single expression key set on v and its value.
func (p *exprParser) node(path string, v cue.Value) (string, cue.Value, error) {
	var (
		found []string
		arg   cue.Value
	)
	for _, key := range exprKeys {
		// keys such as null are CUE keywords, so they are looked up as
		// string labels rather than parsed paths
		if fv := v.LookupPath(cue.MakePath(cue.Str(key))); fv.Exists() {
			found = append(found, key)
			arg = fv
		}
	}
	switch len(found) {
	case 1:
		return found[0], arg, nil
	case 0:
		return "", arg, &CompileError{Field: path, Message: "expected one of " + strings.Join(exprKeys, ", "), Pos: v.Pos()}
	}
	return "", arg, &CompileError{Field: path, Message: "ambiguous filter node: " + strings.Join(found, ", "), Pos: v.Pos()}
}

func (p *exprParser) list(path string, v cue.Value) ([]predicate.Expr, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []predicate.Expr
	for i := 0; iter.Next(); i++ {
		e, err := p.parse(fmt.Sprintf("%s[%d]", path, i), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// enum reads {type, name} and takes the value from the domain's enum, or
// {type, name, value} for enums declared elsewhere.
func (p *exprParser) enum(path string, v cue.Value) (predicate.Value, error) {
	typ, _, err := optionalString(v, "type")
	if err != nil {
		return nil, err
	}
	name, _, err := optionalString(v, "name")
	if err != nil {
		return nil, err
	}
	e := predicate.Enum{Type: typ, Name: name}
	if vv := v.LookupPath(cue.ParsePath("value")); vv.Exists() {
		if e.Value, err = intValue(vv, path+".value"); err != nil {
			return nil, err
		}
		return e, nil
	}
	def, ok := p.d.FindEnum(typ)
	if !ok {
		return nil, &CompileError{Field: path + ".type", Message: fmt.Sprintf("unknown enum %q", typ), Pos: v.Pos()}
	}
	n, ok := def.Lookup(name)
	if !ok {
		return nil, &CompileError{Field: path + ".name", Message: fmt.Sprintf("enum %s has no member %q", typ, name), Pos: v.Pos()}
	}
	e.Value = n
	return e, nil
}

func literal(path string, v cue.Value) (predicate.Value, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return predicate.Int(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return predicate.Str(s), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return predicate.Bool(b), nil
	case cue.NullKind:
		return predicate.Null{}, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{Field: path, Message: "float literals are forbidden - use int instead", Pos: v.Pos()}
	}
	return nil, &CompileError{Field: path, Message: fmt.Sprintf("unsupported literal kind: %v", v.IncompleteKind()), Pos: v.Pos()}
}
