package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/modeldef"
	"github.com/roach88/polyindex/internal/testutil"
)

func rootDef(name string, fields ...modeldef.FieldDef) modeldef.TypeDef {
	return modeldef.TypeDef{
		Name: name, Kind: model.KindEntity,
		Hierarchy: &modeldef.HierarchyDef{Schema: model.ClassTable, Key: []string{"Id"}},
		Fields:    append([]modeldef.FieldDef{{Name: "Id", Type: model.TypeInt64}}, fields...),
	}
}

func TestAnalyzeCycles_Acyclic(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(&modeldef.Domain{}))
	assert.Empty(t, AnalyzeCycles(testutil.ZooDomain()))
	assert.Empty(t, AnalyzeCycles(testutil.ChainDomain(model.SingleTable)))
}

func TestAnalyzeCycles_BaseCycle(t *testing.T) {
	d := &modeldef.Domain{Types: []modeldef.TypeDef{
		{Name: "A", Kind: model.KindEntity, Base: "B"},
		{Name: "B", Kind: model.KindEntity, Base: "A"},
	}}

	cycles := AnalyzeCycles(d)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"A", "B", "A"}, cycles[0].Path)
	assert.Equal(t, "definition cycle: A -> B -> A", cycles[0].Message)
}

func TestAnalyzeCycles_ThreeNodeCycle(t *testing.T) {
	d := &modeldef.Domain{Types: []modeldef.TypeDef{
		{Name: "IA", Kind: model.KindInterface, Implements: []string{"IB"}},
		{Name: "IB", Kind: model.KindInterface, Implements: []string{"IC"}},
		{Name: "IC", Kind: model.KindInterface, Implements: []string{"IA"}},
		rootDef("Free"),
	}}

	cycles := AnalyzeCycles(d)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"IA", "IB", "IC", "IA"}, cycles[0].Path)
}

func TestAnalyzeCycles_KeyReferences(t *testing.T) {
	t.Run("self referencing key", func(t *testing.T) {
		node := modeldef.TypeDef{
			Name: "Node", Kind: model.KindEntity,
			Hierarchy: &modeldef.HierarchyDef{Key: []string{"Parent"}},
			Fields:    []modeldef.FieldDef{{Name: "Parent", Ref: "Node"}},
		}
		cycles := AnalyzeCycles(&modeldef.Domain{Types: []modeldef.TypeDef{node}})
		require.Len(t, cycles, 1)
		assert.Equal(t, []string{"Node", "Node"}, cycles[0].Path)
		assert.Equal(t, "Node depends on itself", cycles[0].Message)
	})

	t.Run("ordinary reference is not an edge", func(t *testing.T) {
		node := rootDef("Node", modeldef.FieldDef{Name: "Parent", Ref: "Node", Nullable: true})
		assert.Empty(t, AnalyzeCycles(&modeldef.Domain{Types: []modeldef.TypeDef{node}}))
	})

	t.Run("mutual key references", func(t *testing.T) {
		a := modeldef.TypeDef{
			Name: "A", Kind: model.KindEntity,
			Hierarchy: &modeldef.HierarchyDef{Key: []string{"B"}},
			Fields:    []modeldef.FieldDef{{Name: "B", Ref: "B"}},
		}
		b := modeldef.TypeDef{
			Name: "B", Kind: model.KindEntity,
			Hierarchy: &modeldef.HierarchyDef{Key: []string{"A"}},
			Fields:    []modeldef.FieldDef{{Name: "A", Ref: "A"}},
		}
		cycles := AnalyzeCycles(&modeldef.Domain{Types: []modeldef.TypeDef{a, b}})
		require.Len(t, cycles, 1)
		assert.Equal(t, []string{"A", "B", "A"}, cycles[0].Path)
	})
}

func TestAnalyzeCycles_Deterministic(t *testing.T) {
	d := &modeldef.Domain{Types: []modeldef.TypeDef{
		{Name: "A", Kind: model.KindEntity, Base: "B"},
		{Name: "B", Kind: model.KindEntity, Base: "A"},
		{Name: "C", Kind: model.KindEntity, Base: "D"},
		{Name: "D", Kind: model.KindEntity, Base: "C"},
	}}

	first := AnalyzeCycles(d)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, AnalyzeCycles(d))
	}
	require.Len(t, first, 2)
}
