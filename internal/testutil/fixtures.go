package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/modeldef"
	"github.com/roach88/polyindex/internal/predicate"
)

// ChainDomain is a three-level hierarchy Base -> Mid -> Leaf under schema.
// Only Base declares value columns; it also declares IX_Name.
func ChainDomain(schema model.InheritanceSchema) *modeldef.Domain {
	return &modeldef.Domain{
		Name: "chain",
		Types: []modeldef.TypeDef{
			{
				Name: "Base", Kind: model.KindEntity,
				Hierarchy: &modeldef.HierarchyDef{Schema: schema, Key: []string{"Id"}},
				Fields: []modeldef.FieldDef{
					{Name: "Id", Type: model.TypeInt64},
					{Name: "Name", Type: model.TypeString},
				},
				Indexes: []model.IndexDef{
					{Name: "IX_Name", KeyFields: []model.KeyField{{Field: "Name"}}},
				},
			},
			{Name: "Mid", Kind: model.KindEntity, Base: "Base"},
			{Name: "Leaf", Kind: model.KindEntity, Base: "Mid"},
		},
	}
}

// SiblingsDomain is a SingleTable hierarchy whose root does not implement
// INamed while its two subtypes A and B do. B also declares IX_Y on Y.
//
// With shared set, Name is declared once on Root and both subtypes implement
// INamed through it. Otherwise A and B each declare their own Name, so the
// shared table stores B's as "B.Name".
func SiblingsDomain(shared bool) *modeldef.Domain {
	name := modeldef.FieldDef{Name: "Name", Type: model.TypeString}
	rootFields := []modeldef.FieldDef{{Name: "Id", Type: model.TypeInt64}}
	var aFields, bFields []modeldef.FieldDef
	if shared {
		rootFields = append(rootFields, name)
	} else {
		aFields = append(aFields, name)
		bFields = append(bFields, name)
	}
	bFields = append(bFields, modeldef.FieldDef{Name: "Y", Type: model.TypeInt32})

	return &modeldef.Domain{
		Name: "siblings",
		Types: []modeldef.TypeDef{
			{
				Name: "INamed", Kind: model.KindInterface,
				Fields: []modeldef.FieldDef{
					{Name: "Id", Type: model.TypeInt64, Key: true},
					{Name: "Name", Type: model.TypeString},
				},
				Indexes: []model.IndexDef{{Name: "IX_INamed_Name", KeyFields: []model.KeyField{{Field: "Name"}}}},
			},
			{
				Name: "Root", Kind: model.KindEntity,
				Hierarchy: &modeldef.HierarchyDef{Schema: model.SingleTable, Key: []string{"Id"}},
				Fields:    rootFields,
			},
			{Name: "A", Kind: model.KindEntity, Base: "Root", Implements: []string{"INamed"}, Fields: aFields},
			{
				Name: "B", Kind: model.KindEntity, Base: "Root", Implements: []string{"INamed"}, Fields: bFields,
				Indexes: []model.IndexDef{{Name: "IX_Y", KeyFields: []model.KeyField{{Field: "Y"}}}},
			},
		},
	}
}

// ZooDomain mixes all three schemas and an interface spanning two
// hierarchies:
//
//	Person   ClassTable, composite key (Region, Number)
//	INamed   interface {Id key, Name}, IX_INamed_Name
//	Animal   ClassTable, abstract, implements INamed
//	  Dog    Breed, IX_Breed
//	    Puppy
//	  Cat    Lives
//	Vehicle  SingleTable, implements INamed
//	  Car    Doors
//	  Truck  Load
//	Shape    ConcreteTable, abstract
//	  Circle Radius
//	  Square Side
//
// Animal carries two partial indexes: IX_Owner (Owner != null) and
// IX_Active (Status == Status.Active).
func ZooDomain() *modeldef.Domain {
	entity := func(name, base string, fields ...modeldef.FieldDef) modeldef.TypeDef {
		return modeldef.TypeDef{Name: name, Kind: model.KindEntity, Base: base, Fields: fields}
	}
	root := func(name string, schema model.InheritanceSchema, abstract bool, fields ...modeldef.FieldDef) modeldef.TypeDef {
		return modeldef.TypeDef{
			Name: name, Kind: model.KindEntity, Abstract: abstract,
			Hierarchy: &modeldef.HierarchyDef{Schema: schema, Key: []string{"Id"}, Generator: "sequence"},
			Fields:    append([]modeldef.FieldDef{{Name: "Id", Type: model.TypeInt64}}, fields...),
		}
	}
	str := func(name string) modeldef.FieldDef { return modeldef.FieldDef{Name: name, Type: model.TypeString} }
	num := func(name string, vt model.ValueType) modeldef.FieldDef { return modeldef.FieldDef{Name: name, Type: vt} }

	animal := root("Animal", model.ClassTable, true,
		str("Name"),
		modeldef.FieldDef{Name: "Owner", Ref: "Person", Nullable: true},
		modeldef.FieldDef{Name: "Status", Enum: "Status"},
	)
	animal.Implements = []string{"INamed"}
	animal.Indexes = []model.IndexDef{
		{
			Name:      "IX_Owner",
			KeyFields: []model.KeyField{{Field: "Owner"}},
			Filter: &predicate.Lambda{Param: "e", Body: predicate.Cmp(predicate.OpNe,
				predicate.Field("e", "Owner"), predicate.Lit(predicate.Null{}))},
		},
		{
			Name:      "IX_Active",
			KeyFields: []model.KeyField{{Field: "Name"}},
			Filter: &predicate.Lambda{Param: "e", Body: predicate.Cmp(predicate.OpEq,
				predicate.Field("e", "Status"), predicate.Lit(predicate.Enum{Type: "Status", Name: "Active", Value: 1}))},
		},
	}

	dog := entity("Dog", "Animal", str("Breed"))
	dog.Indexes = []model.IndexDef{{Name: "IX_Breed", KeyFields: []model.KeyField{{Field: "Breed"}}}}

	vehicle := root("Vehicle", model.SingleTable, false, str("Name"))
	vehicle.Implements = []string{"INamed"}

	return &modeldef.Domain{
		Name: "zoo",
		Enums: []modeldef.EnumDef{{
			Name: "Status", Underlying: model.TypeInt32,
			Values: []modeldef.EnumValue{{Name: "Active", Value: 1}, {Name: "Closed", Value: 2}},
		}},
		Types: []modeldef.TypeDef{
			{
				Name: "Person", Kind: model.KindEntity,
				Hierarchy: &modeldef.HierarchyDef{Schema: model.ClassTable, Key: []string{"Region", "Number"}},
				Fields:    []modeldef.FieldDef{str("Region"), num("Number", model.TypeInt64), str("FullName")},
			},
			{
				Name: "INamed", Kind: model.KindInterface,
				Fields:  []modeldef.FieldDef{{Name: "Id", Type: model.TypeInt64, Key: true}, str("Name")},
				Indexes: []model.IndexDef{{Name: "IX_INamed_Name", KeyFields: []model.KeyField{{Field: "Name"}}}},
			},
			animal,
			dog,
			entity("Puppy", "Dog"),
			entity("Cat", "Animal", num("Lives", model.TypeInt32)),
			vehicle,
			entity("Car", "Vehicle", num("Doors", model.TypeInt32)),
			entity("Truck", "Vehicle", num("Load", model.TypeInt64)),
			root("Shape", model.ConcreteTable, true, num("Area", model.TypeInt64)),
			entity("Circle", "Shape", num("Radius", model.TypeInt64)),
			entity("Square", "Shape", num("Side", model.TypeInt64)),
		},
	}
}

// Resolve resolves d and fails the test on error.
func Resolve(t testing.TB, d *modeldef.Domain) *model.Model {
	t.Helper()
	m, err := modeldef.Resolve(d)
	require.NoError(t, err)
	return m
}

// Type looks a type up by name and fails the test when it is missing.
func Type(t testing.TB, m *model.Model, name string) *model.TypeNode {
	t.Helper()
	node, ok := m.Lookup(name)
	require.True(t, ok, "type %s", name)
	return node
}

// Index looks an index up by name on a type.
func Index(t testing.TB, m *model.Model, typeName, indexName string) *model.Index {
	t.Helper()
	ix, ok := Type(t, m, typeName).Indexes.Get(indexName)
	require.True(t, ok, "index %s on %s", indexName, typeName)
	return ix
}
