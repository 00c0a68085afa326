package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/modeldef"
	"github.com/roach88/polyindex/internal/testutil"
)

func TestInterfaces_DeclaredIndexesAreAbstract(t *testing.T) {
	m, _ := mustBuild(t, testutil.ZooDomain())

	named := testutil.Type(t, m, "INamed")
	assert.Equal(t,
		[]string{"PK_INamed", "IX_INamed_Name", "PK_INamed.UNION", "IX_INamed_Name.UNION"},
		names(named.Indexes.All()))
	for _, name := range []string{"PK_INamed", "IX_INamed_Name"} {
		ix := testutil.Index(t, m, "INamed", name)
		assert.True(t, ix.IsAbstract(), name)
		assert.NotContains(t, m.RealIndexes, ix)
	}
}

func TestInterfaces_ComposedAcrossHierarchies(t *testing.T) {
	m, _ := mustBuild(t, testutil.ZooDomain())

	union := testutil.Type(t, m, "INamed").Indexes.Primary()
	require.Equal(t, "PK_INamed.UNION", union.Name)
	assert.Equal(t, []string{"PK_INamed.VIEW@Animal", "PK_INamed.VIEW@Vehicle"}, names(union.Underlying))
	assert.Equal(t, []string{"TypeId", "Name"}, union.ValueColumnNames())

	animal := union.Underlying[0]
	assert.Same(t, testutil.Index(t, m, "Animal", "PK_Animal"), animal.Underlying[0])
	assert.Equal(t, []int{0, 1, 2}, animal.SelectColumns())

	vehicle := union.Underlying[1]
	filter := vehicle.Underlying[0]
	assert.Equal(t, model.IndexFiltered, filter.Kind())
	assert.Equal(t, []string{"Vehicle", "Car", "Truck"}, typeNames(m, filter.FilterTypes()))
	assert.Same(t, testutil.Index(t, m, "Vehicle", "PK_Vehicle"), filter.Underlying[0])

	secondary := testutil.Index(t, m, "INamed", "IX_INamed_Name.UNION")
	assert.Equal(t, []string{"IX_INamed_Name.VIEW@Animal", "IX_INamed_Name.VIEW@Vehicle"}, names(secondary.Underlying))
	assert.Same(t, testutil.Index(t, m, "Animal", "IX_INamed_Name_Animal"), secondary.Underlying[0].Underlying[0])
	assert.Equal(t, []string{"Name"}, secondary.KeyColumnNames())
}

func TestInterfaces_ExplicitImplementationIsMapped(t *testing.T) {
	d := testutil.ZooDomain()
	vehicle := typeDef(t, d, "Vehicle")
	vehicle.Fields = append(vehicle.Fields, modeldef.FieldDef{Name: "Name", Type: model.TypeString, Explicit: "INamed"})

	m, _ := mustBuild(t, d)

	named := testutil.Index(t, m, "Vehicle", "IX_INamed_Name_Vehicle")
	assert.Equal(t, []string{"INamed.Name"}, named.KeyColumnNames())

	view := testutil.Type(t, m, "INamed").Indexes.Primary().Underlying[1]
	require.Equal(t, "PK_INamed.VIEW@Vehicle", view.Name)
	source := view.Underlying[0].Columns()
	sel := view.SelectColumns()
	require.Len(t, sel, 3)
	assert.Equal(t, "INamed.Name", source[sel[2]].Name)
}

func TestInterfaces_MaterializedOwnsRealIndexes(t *testing.T) {
	d := testutil.ZooDomain()
	d.Types = append(d.Types, modeldef.TypeDef{
		Name: "ICoded", Kind: model.KindInterface, Materialized: true,
		Fields: []modeldef.FieldDef{
			{Name: "Id", Type: model.TypeInt64, Key: true},
			{Name: "Code", Type: model.TypeString},
		},
		Indexes: []model.IndexDef{{Name: "IX_Code", KeyFields: []model.KeyField{{Field: "Code"}}}},
	})
	vehicle := typeDef(t, d, "Vehicle")
	vehicle.Implements = append(vehicle.Implements, "ICoded")
	vehicle.Fields = append(vehicle.Fields, modeldef.FieldDef{Name: "Code", Type: model.TypeString})

	m, _ := mustBuild(t, d)

	coded := testutil.Type(t, m, "ICoded")
	pk := testutil.Index(t, m, "ICoded", "PK_ICoded")
	code := testutil.Index(t, m, "ICoded", "IX_Code")
	assert.False(t, pk.IsAbstract())
	assert.Contains(t, m.RealIndexes, pk)
	assert.Contains(t, m.RealIndexes, code)
	for _, ix := range coded.Indexes.All() {
		assert.True(t, ix.IsReal(), ix.Name)
	}

	for _, name := range []string{"Vehicle", "Car", "Truck"} {
		affected := testutil.Type(t, m, name).AffectedIndexes
		assert.Contains(t, affected, pk, name)
		assert.Contains(t, affected, code, name)
	}
}
