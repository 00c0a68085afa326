package predicate

import (
	"fmt"
	"strings"
)

// Expr is a node of a filter expression tree.
//
// This is a sealed interface: only types in this package implement it.
type Expr interface {
	exprNode()
	String() string
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// ValidCompareOps lists the comparison operators in declaration order.
var ValidCompareOps = []CompareOp{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe}

// LogicalOp combines two boolean operands.
type LogicalOp string

const (
	OpAnd LogicalOp = "&&"
	OpOr  LogicalOp = "||"
)

// Lambda is the root of a filter: a single parameter bound to the row's
// entity and a boolean body.
type Lambda struct {
	Param string
	Body  Expr
}

// Param references the lambda parameter.
type Param struct {
	Name string
}

// Member is a field access on Target. Chains of Member nodes describe
// nested paths such as e.Owner.Id.
type Member struct {
	Target Expr
	Name   string
}

// Constant is a literal value.
type Constant struct {
	Value Value
}

// Compare is a binary comparison.
type Compare struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

// Logical is a binary boolean combinator.
type Logical struct {
	Op    LogicalOp
	Left  Expr
	Right Expr
}

// Not negates its operand.
type Not struct {
	Operand Expr
}

// Call is a method invocation. Filters never support calls; the node exists
// so definition layers can hand the shape to the compiler and get a precise
// rejection.
type Call struct {
	Method string
	Args   []Expr
}

func (*Lambda) exprNode()   {}
func (*Param) exprNode()    {}
func (*Member) exprNode()   {}
func (*Constant) exprNode() {}
func (*Compare) exprNode()  {}
func (*Logical) exprNode()  {}
func (*Not) exprNode()      {}
func (*Call) exprNode()     {}

func (e *Lambda) String() string   { return fmt.Sprintf("%s => %s", e.Param, str(e.Body)) }
func (e *Param) String() string    { return e.Name }
func (e *Member) String() string   { return str(e.Target) + "." + e.Name }
func (e *Constant) String() string { return str(e.Value) }
func (e *Compare) String() string {
	return fmt.Sprintf("(%s %s %s)", str(e.Left), e.Op, str(e.Right))
}
func (e *Logical) String() string {
	return fmt.Sprintf("(%s %s %s)", str(e.Left), e.Op, str(e.Right))
}
func (e *Not) String() string { return "!" + str(e.Operand) }
func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = str(a)
	}
	return fmt.Sprintf("%s(%s)", e.Method, strings.Join(args, ", "))
}

func str(v fmt.Stringer) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}

// Field builds a member chain for a dotted path rooted at param.
//
//	Field("e", "Owner.Id") // e.Owner.Id
func Field(param, path string) Expr {
	var expr Expr = &Param{Name: param}
	for _, part := range strings.Split(path, ".") {
		expr = &Member{Target: expr, Name: part}
	}
	return expr
}

// Lit wraps a literal value.
func Lit(v Value) *Constant {
	return &Constant{Value: v}
}

// Cmp builds a comparison.
func Cmp(op CompareOp, left, right Expr) *Compare {
	return &Compare{Op: op, Left: left, Right: right}
}

// And folds operands into a left-deep conjunction. It returns nil for no
// operands and the operand itself for one.
func And(operands ...Expr) Expr {
	return fold(OpAnd, operands)
}

// Or folds operands into a left-deep disjunction.
func Or(operands ...Expr) Expr {
	return fold(OpOr, operands)
}

func fold(op LogicalOp, operands []Expr) Expr {
	if len(operands) == 0 {
		return nil
	}
	acc := operands[0]
	for _, next := range operands[1:] {
		acc = &Logical{Op: op, Left: acc, Right: next}
	}
	return acc
}

// IsCompareOp reports whether op is a known comparison operator.
func IsCompareOp(op string) bool {
	for _, o := range ValidCompareOps {
		if string(o) == op {
			return true
		}
	}
	return false
}
