package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareValues(t *testing.T) {
	status := func(v int64) Enum { return Enum{Type: "Status", Name: "X", Value: v} }

	testCases := []struct {
		name string
		a, b Value
		want int
	}{
		{"int less", Int(1), Int(2), -1},
		{"int equal", Int(7), Int(7), 0},
		{"int greater", Int(-1), Int(-3), 1},
		{"enum with int", status(2), Int(1), 1},
		{"int with enum", Int(2), status(2), 0},
		{"string", Str("a"), Str("b"), -1},
		{"bool", Bool(false), Bool(true), -1},
		{"bool equal", Bool(true), Bool(true), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CompareValues(tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompareValues_Errors(t *testing.T) {
	testCases := []struct {
		name string
		a, b Value
		want string
	}{
		{"null left", Null{}, Int(1), "cannot order null"},
		{"nil right", Int(1), nil, "cannot order null"},
		{"int with string", Int(1), Str("1"), "cannot compare"},
		{"string with bool", Str("true"), Bool(true), "cannot compare"},
		{"bool with int", Bool(true), Int(1), "cannot compare"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CompareValues(tc.a, tc.b)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "null", Null{}.String())
	assert.Equal(t, "-4", Int(-4).String())
	assert.Equal(t, `"it's"`, Str("it's").String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "Status.Active", Enum{Type: "Status", Name: "Active", Value: 1}.String())
	assert.Equal(t, "Status(9)", Enum{Type: "Status", Value: 9}.String())
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(Null{}))
	assert.False(t, IsNull(Int(0)))
	assert.False(t, IsNull(Str("")))
}

func TestField(t *testing.T) {
	expr := Field("e", "Owner.Id")

	outer, ok := expr.(*Member)
	require.True(t, ok)
	assert.Equal(t, "Id", outer.Name)
	inner, ok := outer.Target.(*Member)
	require.True(t, ok)
	assert.Equal(t, "Owner", inner.Name)
	assert.Equal(t, &Param{Name: "e"}, inner.Target)
	assert.Equal(t, "e.Owner.Id", expr.String())
}

func TestAndOr(t *testing.T) {
	a := Cmp(OpGt, Field("e", "A"), Lit(Int(1)))
	b := Cmp(OpEq, Field("e", "B"), Lit(Null{}))
	c := &Not{Operand: Field("e", "C")}

	assert.Nil(t, And())
	assert.Same(t, a, And(a))
	assert.Equal(t, "((e.A > 1) && (e.B == null))", And(a, b).String())
	assert.Equal(t, "(((e.A > 1) || (e.B == null)) || !e.C)", Or(a, b, c).String())
}

func TestExprString(t *testing.T) {
	lambda := &Lambda{
		Param: "e",
		Body: &Logical{
			Op:    OpAnd,
			Left:  Cmp(OpNe, Field("e", "Name"), Lit(Str("x"))),
			Right: &Call{Method: "StartsWith", Args: []Expr{Field("e", "Name"), Lit(Str("a"))}},
		},
	}
	assert.Equal(t, `e => ((e.Name != "x") && StartsWith(e.Name, "a"))`, lambda.String())
	assert.Equal(t, "!<nil>", (&Not{}).String())
}

func TestIsCompareOp(t *testing.T) {
	for _, op := range []string{"==", "!=", "<", "<=", ">", ">="} {
		assert.True(t, IsCompareOp(op), op)
	}
	for _, op := range []string{"=", "<>", "&&", ""} {
		assert.False(t, IsCompareOp(op), op)
	}
}
