package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyindex/internal/catalog"
	"github.com/roach88/polyindex/internal/config"
)

// builtCatalog builds the shop domain into a fresh catalog.
func builtCatalog(t *testing.T) (string, string) {
	t.Helper()
	db := filepath.Join(t.TempDir(), "catalog.db")
	out, _, err := execute(NewBuildCommand(&RootOptions{Format: "json"}), writeDomain(t, shopSource), "--catalog", db)
	require.NoError(t, err)
	return db, decodeBuild(t, out).Catalog.BuildID
}

func TestInspect_Text(t *testing.T) {
	db, id := builtCatalog(t)

	out, _, err := execute(NewInspectCommand(&RootOptions{Format: "text"}), db)
	require.NoError(t, err)

	assert.Contains(t, out, "Build "+id+" (domain shop, seq ")
	assert.Contains(t, out, "=== Order entity ClassTable ===\n")
	assert.Contains(t, out, "  PK_Order real [primary|unique|clustered]\n       Keys: Id asc\n")
	assert.Contains(t, out, "  IX_Placed real [secondary]\n       Keys: Placed desc\n       Included: Total\n")
	assert.NotContains(t, out, "Affected:")
}

func TestInspect_TypeShowsAffected(t *testing.T) {
	db, _ := builtCatalog(t)

	out, _, err := execute(NewInspectCommand(&RootOptions{Format: "text"}), db, "--type", "Order")
	require.NoError(t, err)
	assert.Contains(t, out, "  Affected: PK_Order, IX_Placed\n")
}

func TestInspect_JSON(t *testing.T) {
	db, id := builtCatalog(t)

	out, _, err := execute(NewInspectCommand(&RootOptions{Format: "json"}), db, "--build", id)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   InspectResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, id, resp.Data.Build.ID)
	assert.Equal(t, []catalog.TypeRecord{{Name: "Order", Kind: "entity", Schema: "ClassTable"}}, resp.Data.Types)
	require.Len(t, resp.Data.Indexes, 2)
	assert.Equal(t, "IX_Placed", resp.Data.Indexes[1].Name)
	assert.Equal(t, []string{"Id", "Total", "TypeId"}, resp.Data.Indexes[1].Values)
}

func TestInspect_CatalogFromConfig(t *testing.T) {
	db, id := builtCatalog(t)
	cfg := config.Default()
	cfg.Catalog = db

	out, _, err := execute(NewInspectCommand(&RootOptions{Format: "text", Config: cfg}))
	require.NoError(t, err)
	assert.Contains(t, out, "Build "+id)
}

func TestInspect_Errors(t *testing.T) {
	db, _ := builtCatalog(t)

	empty := filepath.Join(t.TempDir(), "empty.db")
	cat, err := catalog.Open(empty)
	require.NoError(t, err)
	require.NoError(t, cat.Close())

	testCases := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{"no catalog", nil, ErrCodeNoArgs, ExitCommandError},
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.db")}, ErrCodeNotFound, ExitCommandError},
		{"empty catalog", []string{empty}, ErrCodeNotFound, ExitFailure},
		{"unknown build", []string{db, "--build", "nope"}, ErrCodeNotFound, ExitFailure},
		{"unknown type", []string{db, "--type", "Nope"}, ErrCodeNotFound, ExitFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, _, err := execute(NewInspectCommand(&RootOptions{Format: "json"}), tc.args...)
			require.Error(t, err)
			assert.Equal(t, tc.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}
