package indexing

import (
	"strings"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/predicate"
)

// compileFilters compiles the filter of every partial stored index.
func (b *builder) compileFilters() error {
	var partial []*model.Index
	for _, t := range b.m.Types {
		for _, ix := range t.Indexes.All() {
			if ix.IsReal() && ix.Def() != nil && ix.Def().Filter != nil {
				partial = append(partial, ix)
			}
		}
	}
	for _, ix := range partial {
		pf, err := b.compileFilter(ix)
		if err != nil {
			return err
		}
		ix.Filter = pf
	}
	return nil
}

// compileFilter resolves the filter of ix against the type whose fields
// declared it: the declaring type, with interface field names mapped onto
// the implementing fields for indexes inherited from an interface.
func (b *builder) compileFilter(ix *model.Index) (*model.PartialFilter, error) {
	lambda := ix.Def().Filter
	fc := &filterCompiler{
		b:      b,
		ix:     ix,
		ctx:    b.m.Type(ix.DeclaringType),
		iface:  model.NoType,
		param:  lambda.Param,
		lambda: lambda,
		slots:  make(map[*model.Field]int),
	}
	if origin := b.m.Type(ix.Lineage().ReflectedType); origin.IsInterface() && !fc.ctx.IsInterface() {
		fc.iface = origin.ID
	}
	if lambda.Body == nil {
		return nil, fc.fail(lambda, "filter has no body")
	}
	cond, err := fc.condition(lambda.Body)
	if err != nil {
		return nil, err
	}
	return &model.PartialFilter{
		Index:      ix,
		Fields:     fc.fields,
		Condition:  cond,
		Expression: lambda.String(),
	}, nil
}

// filterCompiler visits a filter body and emits a column-positional
// condition. Fields get ordinals in order of first reference.
type filterCompiler struct {
	b      *builder
	ix     *model.Index
	ctx    *model.TypeNode
	iface  model.TypeID
	param  string
	lambda *predicate.Lambda

	fields []*model.Field
	slots  map[*model.Field]int
}

func (fc *filterCompiler) fail(e predicate.Expr, format string, args ...any) *BuildError {
	err := buildErr(ErrInvalidFilter, fc.b.m.NameOf(fc.ix.ReflectedType), fc.ix.Name, format, args...)
	expr := "<nil>"
	if e != nil {
		expr = e.String()
	}
	err.Details = []string{"expression: " + expr, "filter: " + fc.lambda.String()}
	return err
}

func (fc *filterCompiler) condition(e predicate.Expr) (model.Condition, error) {
	switch n := e.(type) {
	case *predicate.Compare:
		return fc.compare(n)
	case *predicate.Logical:
		return fc.logical(n)
	case *predicate.Not:
		inner, err := fc.condition(n.Operand)
		if err != nil {
			return nil, err
		}
		return model.NoneOf{Term: inner}, nil
	case *predicate.Member:
		f, err := fc.field(n)
		if err != nil {
			return nil, err
		}
		if f.Type != model.TypeBool || f.Column == nil {
			return nil, fc.fail(n, "member %s is not boolean", f.Name)
		}
		return model.SlotTest{
			Op:    predicate.OpEq,
			Left:  model.Operand{Slot: fc.slot(f), Type: f.Type},
			Right: model.Operand{Literal: predicate.Bool(true), Type: model.TypeBool},
		}, nil
	case *predicate.Lambda:
		return nil, fc.fail(n, "nested lambda is not supported")
	case *predicate.Call:
		return nil, fc.fail(n, "method call %s is not supported", n.Method)
	case *predicate.Param:
		return nil, fc.fail(n, "bare parameter is not a condition")
	case *predicate.Constant:
		return nil, fc.fail(n, "constant is not a condition")
	}
	return nil, fc.fail(e, "unsupported expression %T", e)
}

// logical flattens chains of one operator into a single AllOf or AnyOf.
func (fc *filterCompiler) logical(n *predicate.Logical) (model.Condition, error) {
	var terms []model.Condition
	var collect func(e predicate.Expr) error
	collect = func(e predicate.Expr) error {
		if l, ok := e.(*predicate.Logical); ok && l.Op == n.Op {
			if err := collect(l.Left); err != nil {
				return err
			}
			return collect(l.Right)
		}
		c, err := fc.condition(e)
		if err != nil {
			return err
		}
		terms = append(terms, c)
		return nil
	}
	if err := collect(n); err != nil {
		return nil, err
	}
	switch n.Op {
	case predicate.OpAnd:
		return model.AllOf{Terms: terms}, nil
	case predicate.OpOr:
		return model.AnyOf{Terms: terms}, nil
	}
	return nil, fc.fail(n, "unknown operator %q", n.Op)
}

func (fc *filterCompiler) compare(n *predicate.Compare) (model.Condition, error) {
	if !predicate.IsCompareOp(string(n.Op)) {
		return nil, fc.fail(n, "unknown operator %q", n.Op)
	}
	if member, ok := nullComparison(n); ok {
		if n.Op != predicate.OpEq && n.Op != predicate.OpNe {
			return nil, fc.fail(n, "null only compares with == and !=")
		}
		return fc.nullTest(member, n.Op == predicate.OpNe)
	}

	left, lf, err := fc.operand(n.Left)
	if err != nil {
		return nil, err
	}
	right, rf, err := fc.operand(n.Right)
	if err != nil {
		return nil, err
	}
	if lf == nil && rf == nil {
		return nil, fc.fail(n, "comparison references no field")
	}
	if left, err = fc.coerce(n, left, rf); err != nil {
		return nil, err
	}
	if right, err = fc.coerce(n, right, lf); err != nil {
		return nil, err
	}
	return model.SlotTest{Op: n.Op, Left: left, Right: right}, nil
}

// nullComparison matches member == null and null == member.
func nullComparison(n *predicate.Compare) (*predicate.Member, bool) {
	isNull := func(e predicate.Expr) bool {
		c, ok := e.(*predicate.Constant)
		return ok && predicate.IsNull(c.Value)
	}
	if m, ok := n.Left.(*predicate.Member); ok && isNull(n.Right) {
		return m, true
	}
	if m, ok := n.Right.(*predicate.Member); ok && isNull(n.Left) {
		return m, true
	}
	return nil, false
}

// nullTest checks every key column of a reference, or the single column of
// a primitive field.
func (fc *filterCompiler) nullTest(m *predicate.Member, negated bool) (model.Condition, error) {
	f, err := fc.field(m)
	if err != nil {
		return nil, err
	}
	if f.IsStructure() {
		return nil, fc.fail(m, "structure field %s cannot be compared with null", f.Name)
	}
	if f.Column != nil {
		return model.NullTest{Slot: fc.slot(f), Negated: negated}, nil
	}
	var terms []model.Condition
	for _, leaf := range leaves(f) {
		if err := fc.checkStored(m, leaf); err != nil {
			return nil, err
		}
		terms = append(terms, model.NullTest{Slot: fc.slot(leaf), Negated: negated})
	}
	if len(terms) == 0 {
		return nil, fc.fail(m, "reference %s has no key columns", f.Name)
	}
	return model.AllOf{Terms: terms}, nil
}

func (fc *filterCompiler) operand(e predicate.Expr) (model.Operand, *model.Field, error) {
	switch n := e.(type) {
	case *predicate.Constant:
		if n.Value == nil {
			return model.Operand{}, nil, fc.fail(n, "constant has no value")
		}
		return model.Operand{Literal: n.Value}, nil, nil
	case *predicate.Member:
		f, err := fc.field(n)
		if err != nil {
			return model.Operand{}, nil, err
		}
		if f.Column == nil {
			return model.Operand{}, nil, fc.fail(n, "field %s is not a primitive value", f.Name)
		}
		return model.Operand{Slot: fc.slot(f), Type: f.Type}, f, nil
	}
	return model.Operand{}, nil, fc.fail(e, "unsupported operand %T", e)
}

// coerce checks a literal against the field on the other side. Enum
// literals compared with a numeric field become the enum's numeric value.
func (fc *filterCompiler) coerce(n *predicate.Compare, op model.Operand, other *model.Field) (model.Operand, error) {
	if !op.IsLiteral() || other == nil {
		return op, nil
	}
	op.Type = other.Type
	switch lit := op.Literal.(type) {
	case predicate.Enum:
		if !other.Type.IsNumeric() {
			return op, fc.fail(n, "enum %s compared with %s field %s", lit, other.Type, other.Name)
		}
		if other.IsEnum() && lit.Type != "" && lit.Type != other.EnumType {
			return op, fc.fail(n, "enum %s compared with field %s of enum %s", lit, other.Name, other.EnumType)
		}
		op.Literal = predicate.Int(lit.Value)
	case predicate.Int:
		if !other.Type.IsNumeric() {
			return op, fc.fail(n, "number compared with %s field %s", other.Type, other.Name)
		}
	case predicate.Str:
		switch other.Type {
		case model.TypeString, model.TypeGUID, model.TypeDateTime:
		default:
			return op, fc.fail(n, "string compared with %s field %s", other.Type, other.Name)
		}
	case predicate.Bool:
		if other.Type != model.TypeBool {
			return op, fc.fail(n, "boolean compared with %s field %s", other.Type, other.Name)
		}
	}
	return op, nil
}

// field resolves a member chain rooted at the lambda parameter.
func (fc *filterCompiler) field(m *predicate.Member) (*model.Field, error) {
	var parts []string
	var cur predicate.Expr = m
	for {
		n, ok := cur.(*predicate.Member)
		if !ok {
			break
		}
		parts = append([]string{n.Name}, parts...)
		cur = n.Target
	}
	p, ok := cur.(*predicate.Param)
	if !ok {
		return nil, fc.fail(m, "member access on %T is not supported", cur)
	}
	if p.Name != fc.param {
		return nil, fc.fail(m, "unknown parameter %s", p.Name)
	}
	path := strings.Join(parts, ".")
	for i := range parts {
		if fc.ctx.IsNonPersistent(strings.Join(parts[:i+1], ".")) {
			return nil, fc.fieldFail(m, path, "member is not persistent")
		}
	}
	name := path
	if fc.iface != model.NoType {
		name = fc.ctx.ImplementingField(fc.iface, path)
	}
	f, ok := fc.ctx.Field(name)
	if !ok {
		return nil, fc.fieldFail(m, path, "no such field on %s", fc.ctx.Name)
	}
	if f.Column != nil {
		if err := fc.checkStored(m, f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// checkStored rejects columns a ClassTable index table does not hold.
func (fc *filterCompiler) checkStored(m *predicate.Member, f *model.Field) error {
	reflected := fc.b.m.Type(fc.ix.ReflectedType)
	if !reflected.IsEntity() || reflected.Hierarchy.Schema != model.ClassTable {
		return nil
	}
	if f.PrimaryKey || f.Column.DeclaringType == reflected.ID {
		return nil
	}
	return fc.fieldFail(m, f.Name, "column is stored in the table of %s", fc.b.m.NameOf(f.Column.DeclaringType))
}

func (fc *filterCompiler) fieldFail(m *predicate.Member, field, format string, args ...any) *BuildError {
	err := fc.fail(m, format, args...)
	err.Field = field
	return err
}

func (fc *filterCompiler) slot(f *model.Field) int {
	if i, ok := fc.slots[f]; ok {
		return i
	}
	i := len(fc.fields)
	fc.slots[f] = i
	fc.fields = append(fc.fields, f)
	return i
}

func leaves(f *model.Field) []*model.Field {
	if f.Column != nil {
		return []*model.Field{f}
	}
	var out []*model.Field
	for _, c := range f.Children {
		out = append(out, leaves(c)...)
	}
	return out
}
