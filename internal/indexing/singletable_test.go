package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/modeldef"
	"github.com/roach88/polyindex/internal/testutil"
)

func TestSingleTable_RealIndexesLiveOnRoot(t *testing.T) {
	m, _ := mustBuild(t, testutil.ZooDomain())

	pk := testutil.Index(t, m, "Vehicle", "PK_Vehicle")
	assert.Equal(t, []string{"Id"}, pk.KeyColumnNames())
	assert.Equal(t, []string{"TypeId", "Name", "Doors", "Load"}, pk.ValueColumnNames())

	named := testutil.Index(t, m, "Vehicle", "IX_INamed_Name_Vehicle")
	assert.True(t, named.IsReal())
	assert.Equal(t, "INamed", m.NameOf(named.Lineage().ReflectedType))
	assert.Equal(t, []string{"Id", "TypeId"}, named.ValueColumnNames())

	for _, name := range []string{"Car", "Truck"} {
		for _, ix := range testutil.Type(t, m, name).Indexes.All() {
			assert.True(t, ix.IsVirtual(), "%s on %s", ix.Name, name)
		}
	}
}

func TestSingleTable_DescendantsSeeFilters(t *testing.T) {
	m, _ := mustBuild(t, testutil.ZooDomain())

	car := testutil.Type(t, m, "Car")
	assert.Equal(t, []string{"PK_Car.FILTER@Vehicle", "IX_INamed_Name_Car.VIEW"}, names(car.Indexes.All()))

	primary := car.Indexes.Primary()
	assert.Equal(t, "PK_Car.FILTER@Vehicle", primary.Name)
	assert.Equal(t, []string{"Car"}, typeNames(m, primary.FilterTypes()))
	assert.Same(t, testutil.Index(t, m, "Vehicle", "PK_Vehicle"), primary.Underlying[0])

	view := testutil.Index(t, m, "Car", "IX_INamed_Name_Car.VIEW")
	require.Len(t, view.Underlying, 1)
	inner := view.Underlying[0]
	assert.Equal(t, model.IndexFiltered, inner.Kind())
	assert.Equal(t, []string{"Car"}, typeNames(m, inner.FilterTypes()))
	assert.Same(t, testutil.Index(t, m, "Vehicle", "IX_INamed_Name_Vehicle"), inner.Underlying[0])
	assert.Equal(t, []string{"Name"}, view.KeyColumnNames())
}

func TestSingleTable_FilterCoversSubtree(t *testing.T) {
	m, report := mustBuild(t, testutil.ChainDomain(model.SingleTable))

	mid := testutil.Type(t, m, "Mid").Indexes.Primary()
	assert.Equal(t, model.IndexFiltered, mid.Kind())
	assert.Equal(t, []string{"Mid", "Leaf"}, typeNames(m, mid.FilterTypes()))

	name := testutil.Index(t, m, "Leaf", "IX_Name_Leaf.FILTER@Base")
	assert.Equal(t, []string{"Leaf"}, typeNames(m, name.FilterTypes()))

	// the shared table carries TypeId, so nothing is typed
	assert.Zero(t, report.RemovedTyped)
	for _, typ := range m.Types {
		for _, ix := range typ.Indexes.All() {
			assert.NotEqual(t, model.IndexTyped, ix.Kind(), ix.Name)
		}
	}
}

func TestSingleTable_ClashingColumnsAreRenamed(t *testing.T) {
	d := testutil.ZooDomain()
	truck := typeDef(t, d, "Truck")
	truck.Fields = append(truck.Fields, modeldef.FieldDef{Name: "Doors", Type: model.TypeInt32})

	m, _ := mustBuild(t, d)

	pk := testutil.Index(t, m, "Vehicle", "PK_Vehicle")
	assert.Equal(t, []string{"TypeId", "Name", "Doors", "Load", "Truck.Doors"}, pk.ValueColumnNames())
}

func TestSingleTable_InterfaceImplementedBelowRoot(t *testing.T) {
	m, _ := mustBuild(t, testutil.SiblingsDomain(false))

	root := testutil.Type(t, m, "Root")
	aID := testutil.Type(t, m, "A").ID
	bID := testutil.Type(t, m, "B").ID
	assert.Equal(t, []string{"PK_Root", "IX_INamed_Name_Root", "IX_Y", "IX_INamed_Name_B"}, names(root.Indexes.All()))

	forA := testutil.Index(t, m, "Root", "IX_INamed_Name_Root")
	assert.Equal(t, []string{"Name"}, forA.KeyColumnNames())
	assert.Equal(t, []model.TypeID{aID}, forA.Declarers())
	forB := testutil.Index(t, m, "Root", "IX_INamed_Name_B")
	assert.Equal(t, []string{"B.Name"}, forB.KeyColumnNames())
	assert.Equal(t, []model.TypeID{bID}, forB.Declarers())

	assert.Equal(t, []string{"PK_A.FILTER@Root", "IX_INamed_Name_A.VIEW"}, names(testutil.Type(t, m, "A").Indexes.All()))
	assert.Equal(t, []string{"PK_B.FILTER@Root", "IX_Y_B.FILTER@Root", "IX_INamed_Name_B.VIEW"},
		names(testutil.Type(t, m, "B").Indexes.All()))
	viewB := testutil.Index(t, m, "B", "IX_INamed_Name_B.VIEW")
	assert.Same(t, forB, viewB.Underlying[0].Underlying[0])
}

func TestSingleTable_InterfaceComposedPerImplementor(t *testing.T) {
	m, _ := mustBuild(t, testutil.SiblingsDomain(false))

	named := testutil.Type(t, m, "INamed")
	union := named.Indexes.Primary()
	require.Equal(t, model.IndexUnion, union.Kind())
	assert.Equal(t, []string{"PK_INamed.VIEW@A", "PK_INamed.VIEW@B"}, names(union.Underlying))

	pk := testutil.Index(t, m, "Root", "PK_Root")
	for i, typ := range []string{"A", "B"} {
		filter := union.Underlying[i].Underlying[0]
		assert.Equal(t, model.IndexFiltered, filter.Kind())
		assert.Equal(t, []string{typ}, typeNames(m, filter.FilterTypes()))
		assert.Same(t, pk, filter.Underlying[0])
	}

	// each view reads its own implementor's Name column
	for i, col := range []string{"Name", "B.Name"} {
		view := union.Underlying[i]
		row := view.Underlying[0].Columns()
		sel := view.SelectColumns()
		require.Len(t, sel, 3, view.Name)
		assert.Equal(t, col, row[sel[2]].Name, view.Name)
	}

	secondary := testutil.Index(t, m, "INamed", "IX_INamed_Name.UNION")
	require.Len(t, secondary.Underlying, 2)
	assert.Same(t, testutil.Index(t, m, "Root", "IX_INamed_Name_Root"), secondary.Underlying[0].Underlying[0].Underlying[0])
	assert.Same(t, testutil.Index(t, m, "Root", "IX_INamed_Name_B"), secondary.Underlying[1].Underlying[0].Underlying[0])
	assert.Equal(t, []string{"Name"}, secondary.KeyColumnNames())
}

func TestSingleTable_SiblingsShareOneInterfaceIndex(t *testing.T) {
	m, _ := mustBuild(t, testutil.SiblingsDomain(true))

	root := testutil.Type(t, m, "Root")
	assert.Equal(t, []string{"PK_Root", "IX_INamed_Name_Root", "IX_Y"}, names(root.Indexes.All()))

	shared := testutil.Index(t, m, "Root", "IX_INamed_Name_Root")
	assert.Equal(t, []string{"A", "B"}, typeNames(m, shared.Declarers()))

	for _, typ := range []string{"A", "B"} {
		view := testutil.Index(t, m, typ, "IX_INamed_Name_"+typ+".VIEW")
		filter := view.Underlying[0]
		assert.Equal(t, []string{typ}, typeNames(m, filter.FilterTypes()))
		assert.Same(t, shared, filter.Underlying[0])
	}

	secondary := testutil.Index(t, m, "INamed", "IX_INamed_Name.UNION")
	require.Len(t, secondary.Underlying, 2)
	for _, v := range secondary.Underlying {
		assert.Same(t, shared, v.Underlying[0].Underlying[0])
	}
}
