package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/modeldef"
	"github.com/roach88/polyindex/internal/predicate"
	"github.com/roach88/polyindex/internal/testutil"
)

func fieldNames(fields []*model.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// withFilter replaces the filter of Animal's IX_Active.
func withFilter(t *testing.T, body predicate.Expr) *modeldef.Domain {
	t.Helper()
	d := testutil.ZooDomain()
	animal := typeDef(t, d, "Animal")
	for i := range animal.Indexes {
		if animal.Indexes[i].Name == "IX_Active" {
			animal.Indexes[i].Filter = &predicate.Lambda{Param: "e", Body: body}
			return d
		}
	}
	t.Fatal("IX_Active not declared")
	return nil
}

func TestPartial_ReferenceNullTestCoversEveryKeyColumn(t *testing.T) {
	m, _ := mustBuild(t, testutil.ZooDomain())

	pf := testutil.Index(t, m, "Animal", "IX_Owner").Filter
	require.NotNil(t, pf)
	assert.Equal(t, []string{"Owner.Region", "Owner.Number"}, fieldNames(pf.Fields))
	assert.Equal(t, model.AllOf{Terms: []model.Condition{
		model.NullTest{Slot: 0, Negated: true},
		model.NullTest{Slot: 1, Negated: true},
	}}, pf.Condition)
	assert.Equal(t, "e => (e.Owner != null)", pf.Expression)

	ok, err := pf.Evaluate([]predicate.Value{predicate.Str("EU"), predicate.Int(7)})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = pf.Evaluate([]predicate.Value{predicate.Null{}, predicate.Int(7)})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPartial_EnumLiteralBecomesNumber(t *testing.T) {
	active := predicate.Lit(predicate.Enum{Type: "Status", Name: "Active", Value: 1})
	status := predicate.Field("e", "Status")
	slot := model.Operand{Slot: 0, Type: model.TypeInt32}
	literal := model.Operand{Literal: predicate.Int(1), Type: model.TypeInt32}

	tests := []struct {
		name string
		body predicate.Expr
		want model.Condition
	}{
		{"field first", predicate.Cmp(predicate.OpEq, status, active),
			model.SlotTest{Op: predicate.OpEq, Left: slot, Right: literal}},
		{"literal first", predicate.Cmp(predicate.OpEq, active, status),
			model.SlotTest{Op: predicate.OpEq, Left: literal, Right: slot}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := mustBuild(t, withFilter(t, tt.body))
			pf := testutil.Index(t, m, "Animal", "IX_Active").Filter
			require.NotNil(t, pf)
			assert.Equal(t, []string{"Status"}, fieldNames(pf.Fields))
			assert.Equal(t, tt.want, pf.Condition)

			ok, err := pf.Evaluate([]predicate.Value{predicate.Int(1)})
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = pf.Evaluate([]predicate.Value{predicate.Int(2)})
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPartial_LogicalChainsFlatten(t *testing.T) {
	status := predicate.Field("e", "Status")
	body := predicate.Or(
		predicate.Cmp(predicate.OpEq, status, predicate.Lit(predicate.Int(1))),
		predicate.Cmp(predicate.OpEq, status, predicate.Lit(predicate.Int(2))),
		&predicate.Not{Operand: predicate.Cmp(predicate.OpEq, predicate.Field("e", "Name"), predicate.Lit(predicate.Null{}))},
	)
	m, _ := mustBuild(t, withFilter(t, body))

	pf := testutil.Index(t, m, "Animal", "IX_Active").Filter
	assert.Equal(t, []string{"Status", "Name"}, fieldNames(pf.Fields))
	cond, ok := pf.Condition.(model.AnyOf)
	require.True(t, ok, "%T", pf.Condition)
	require.Len(t, cond.Terms, 3)
	assert.Equal(t, model.NoneOf{Term: model.NullTest{Slot: 1}}, cond.Terms[2])

	got, err := pf.Evaluate([]predicate.Value{predicate.Int(5), predicate.Str("Rex")})
	require.NoError(t, err)
	assert.True(t, got)
	got, err = pf.Evaluate([]predicate.Value{predicate.Int(5), predicate.Null{}})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestPartial_InvalidFilters(t *testing.T) {
	tests := []struct {
		name  string
		body  predicate.Expr
		field string
	}{
		{"method call", &predicate.Call{Method: "StartsWith", Args: []predicate.Expr{predicate.Field("e", "Name")}}, ""},
		{"nested lambda", &predicate.Lambda{Param: "x", Body: predicate.Field("x", "Name")}, ""},
		{"unknown field", predicate.Cmp(predicate.OpEq, predicate.Field("e", "Missing"), predicate.Lit(predicate.Int(1))), "Missing"},
		{"unknown parameter", predicate.Cmp(predicate.OpEq, predicate.Field("x", "Name"), predicate.Lit(predicate.Str("a"))), ""},
		{"type mismatch", predicate.Cmp(predicate.OpEq, predicate.Field("e", "Name"), predicate.Lit(predicate.Int(3))), ""},
		{"foreign enum", predicate.Cmp(predicate.OpEq, predicate.Field("e", "Status"),
			predicate.Lit(predicate.Enum{Type: "Color", Name: "Red", Value: 1})), ""},
		{"ordered null", predicate.Cmp(predicate.OpLt, predicate.Field("e", "Name"), predicate.Lit(predicate.Null{})), ""},
		{"non-boolean member", predicate.Field("e", "Name"), ""},
		{"constant body", predicate.Lit(predicate.Bool(true)), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := buildErrOf(t, withFilter(t, tt.body))
			assert.Equal(t, ErrInvalidFilter, be.Code)
			assert.Equal(t, "Animal", be.Type)
			assert.Equal(t, "IX_Active", be.Index)
			assert.Equal(t, tt.field, be.Field)
			require.Len(t, be.Details, 2)
			assert.Contains(t, be.Details[1], "filter: e =>")
		})
	}
}

func TestPartial_NonPersistentMember(t *testing.T) {
	d := withFilter(t, predicate.Cmp(predicate.OpNe, predicate.Field("e", "Nickname"), predicate.Lit(predicate.Null{})))
	typeDef(t, d, "Animal").NonPersistent = []string{"Nickname"}

	be := buildErrOf(t, d)
	assert.Equal(t, ErrInvalidFilter, be.Code)
	assert.Equal(t, "Nickname", be.Field)
	assert.Contains(t, be.Message, "not persistent")
}

func TestPartial_ClassTableRejectsAncestorColumns(t *testing.T) {
	d := testutil.ZooDomain()
	dog := typeDef(t, d, "Dog")
	dog.Indexes[0].Filter = &predicate.Lambda{Param: "e", Body: predicate.Cmp(predicate.OpNe,
		predicate.Field("e", "Name"), predicate.Lit(predicate.Null{}))}

	be := buildErrOf(t, d)
	assert.Equal(t, ErrInvalidFilter, be.Code)
	assert.Equal(t, "Dog", be.Type)
	assert.Equal(t, "IX_Breed", be.Index)
	assert.Equal(t, "Name", be.Field)
	assert.Contains(t, be.Message, "Animal")
}

func TestPartial_OwnColumnsOnDescendantAreAccepted(t *testing.T) {
	d := testutil.ZooDomain()
	dog := typeDef(t, d, "Dog")
	dog.Indexes[0].Filter = &predicate.Lambda{Param: "e", Body: predicate.Cmp(predicate.OpNe,
		predicate.Field("e", "Breed"), predicate.Lit(predicate.Str("")))}

	m, _ := mustBuild(t, d)
	breed := testutil.Index(t, m, "Dog", "IX_Breed")
	assert.True(t, breed.IsPartial())
	require.NotNil(t, breed.Filter)
	assert.Equal(t, []string{"Breed"}, fieldNames(breed.Filter.Fields))
	assert.True(t, testutil.Index(t, m, "Dog", "IX_Breed.TYPED").IsPartial())
}
