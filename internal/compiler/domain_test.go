package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/testutil"
)

const zooSource = `
name: "zoo"

enum: Status: {underlying: "int32", values: {Active: 1, Closed: 2}}

type: Person: {
	hierarchy: {schema: "ClassTable", key: ["Region", "Number"]}
	fields: {
		Region: type:   "string"
		Number: type:   "int64"
		FullName: type: "string"
	}
}

type: INamed: {
	kind: "interface"
	fields: {
		Id: {type: "int64", key: true}
		Name: type: "string"
	}
	index: IX_INamed_Name: keys: ["Name"]
}

type: Animal: {
	abstract: true
	hierarchy: {schema: "ClassTable", key: ["Id"], generator: "sequence"}
	implements: ["INamed"]
	fields: {
		Id: type:   "int64"
		Name: type: "string"
		Owner: {ref: "Person", nullable: true}
		Status: enum: "Status"
	}
	index: {
		IX_Owner: {
			keys: ["Owner"]
			filter: {param: "e", body: ne: [{field: "Owner"}, {"null": true}]}
		}
		IX_Active: {
			keys: ["Name"]
			filter: {param: "e", body: eq: [{field: "Status"}, {enum: {type: "Status", name: "Active"}}]}
		}
	}
}

type: Dog: {
	base: "Animal"
	fields: Breed: type: "string"
	index: IX_Breed: keys: ["Breed"]
}

type: Puppy: base: "Dog"

type: Cat: {
	base: "Animal"
	fields: Lives: type: "int32"
}

type: Vehicle: {
	hierarchy: {schema: "SingleTable", key: ["Id"], generator: "sequence"}
	implements: ["INamed"]
	fields: {
		Id: type:   "int64"
		Name: type: "string"
	}
}

type: Car: {
	base: "Vehicle"
	fields: Doors: type: "int32"
}

type: Truck: {
	base: "Vehicle"
	fields: Load: type: "int64"
}

type: Shape: {
	abstract: true
	hierarchy: {schema: "ConcreteTable", key: ["Id"], generator: "sequence"}
	fields: {
		Id: type:   "int64"
		Area: type: "int64"
	}
}

type: Circle: {
	base: "Shape"
	fields: Radius: type: "int64"
}

type: Square: {
	base: "Shape"
	fields: Side: type: "int64"
}
`

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileDomain_Zoo(t *testing.T) {
	d, err := CompileDomain(compileString(t, zooSource))
	require.NoError(t, err)

	assert.Equal(t, testutil.ZooDomain(), d)
	assert.Empty(t, Validate(d))
}

func TestCompileDomain_NameFromPath(t *testing.T) {
	v := compileString(t, `
		domain: shop: {
			type: Order: {
				hierarchy: key: ["Id"]
				fields: Id: type: "int64"
			}
		}
	`)
	d, err := CompileDomain(v.LookupPath(cue.ParsePath("domain.shop")))
	require.NoError(t, err)

	assert.Equal(t, "shop", d.Name)
	require.Len(t, d.Types, 1)
	order := d.Types[0]
	assert.Equal(t, model.KindEntity, order.Kind)
	require.NotNil(t, order.Hierarchy)
	assert.Equal(t, model.ClassTable, order.Hierarchy.Schema)
}

func TestCompileDomain_Indexes(t *testing.T) {
	d, err := CompileDomain(compileString(t, `
		type: Order: {
			hierarchy: key: ["Id"]
			fields: {
				Id: type:     "int64"
				Placed: type: "datetime"
				Total: type:  "int64"
			}
			index: IX_Placed: {
				keys: ["-Placed", "Id"]
				include: ["Total"]
				unique: true
				clustered: true
				fill_factor: 80
			}
		}
	`))
	require.NoError(t, err)

	ix := d.Types[0].Indexes[0]
	assert.Equal(t, "IX_Placed", ix.Name)
	assert.Equal(t, []model.KeyField{
		{Field: "Placed", Direction: model.Descending},
		{Field: "Id", Direction: model.Ascending},
	}, ix.KeyFields)
	assert.Equal(t, []string{"Total"}, ix.IncludedFields)
	assert.True(t, ix.Unique)
	assert.True(t, ix.Clustered)
	assert.Equal(t, 80, ix.FillFactor)
	assert.Nil(t, ix.Filter)
}

func TestCompileDomain_ExplicitImplementation(t *testing.T) {
	d, err := CompileDomain(compileString(t, `
		type: Item: {
			hierarchy: key: ["Id"]
			implements: ["INamed"]
			fields: {
				Id: type:            "int64"
				Name: type:          "string"
				"INamed.Name": type: "string"
			}
		}
	`))
	require.NoError(t, err)

	fields := d.Types[0].Fields
	require.Len(t, fields, 3)
	assert.Equal(t, "Name", fields[2].Name)
	assert.Equal(t, "INamed", fields[2].Explicit)
	assert.Empty(t, fields[1].Explicit)
}

func TestCompileDomain_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		message string
	}{
		{
			name:    "float field",
			src:     `type: A: fields: Price: type: "float64"`,
			message: "float types are forbidden",
		},
		{
			name:    "unknown value type",
			src:     `type: A: fields: X: type: "uuid4"`,
			message: "unknown value type",
		},
		{
			name:    "unknown kind",
			src:     `type: A: kind: "table"`,
			message: "unknown type kind",
		},
		{
			name:    "unknown schema",
			src:     `type: A: hierarchy: schema: "Joined"`,
			message: "unknown inheritance schema",
		},
		{
			name:    "enum without values",
			src:     `enum: Color: underlying: "int8"`,
			message: "enum values are required",
		},
		{
			name:    "float enum value",
			src:     `enum: Color: values: Red: 1.5`,
			message: "float values are forbidden",
		},
		{
			name:    "float fill factor",
			src:     `type: A: index: IX: {keys: ["X"], fill_factor: 0.5}`,
			message: "float values are forbidden",
		},
		{
			name:    "keys not a list",
			src:     `type: A: index: IX: keys: "X"`,
			message: "list",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CompileDomain(compileString(t, tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "type.A.kind", Message: "unknown type kind"}
	assert.Equal(t, "type.A.kind: unknown type kind", err.Error())
}
