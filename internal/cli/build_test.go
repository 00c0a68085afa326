package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyindex/internal/config"
)

func decodeBuild(t *testing.T, out string) BuildResult {
	t.Helper()
	var resp struct {
		Status string      `json:"status"`
		Data   BuildResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestBuild_Text(t *testing.T) {
	out, _, err := execute(NewBuildCommand(&RootOptions{Format: "text"}), writeDomain(t, shopSource))
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Built domain shop: 1 type(s), 2 real index(es), 0 virtual index(es)\n")
	assert.Regexp(t, regexp.MustCompile(`Hash: [0-9a-f]{64}\n`), out)
	assert.NotContains(t, out, "CREATE")
}

func TestBuild_Deterministic(t *testing.T) {
	dir := writeDomain(t, shopSource)

	first, _, err := execute(NewBuildCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)
	second, _, err := execute(NewBuildCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	assert.Equal(t, decodeBuild(t, first).Hash, decodeBuild(t, second).Hash)
}

func TestBuild_SnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.json")
	out, _, err := execute(NewBuildCommand(&RootOptions{Format: "json"}), writeDomain(t, shopSource), "-o", path)
	require.NoError(t, err)
	assert.Equal(t, path, decodeBuild(t, out).Output)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("..", "snapshot", "testdata", "shop.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestBuild_DDL(t *testing.T) {
	out, _, err := execute(NewBuildCommand(&RootOptions{Format: "text"}), writeDomain(t, shopSource), "--ddl")
	require.NoError(t, err)
	assert.Contains(t, out, "\nCREATE INDEX \"IX_Placed\" ON \"Order\" (\"Placed\" DESC) -- include: Total;\n")
	assert.NotContains(t, out, "PK_Order")
}

func TestBuild_CatalogIdempotent(t *testing.T) {
	dir := writeDomain(t, shopSource)
	db := filepath.Join(t.TempDir(), "catalog.db")

	out, _, err := execute(NewBuildCommand(&RootOptions{Format: "json"}), dir, "--catalog", db)
	require.NoError(t, err)
	first := decodeBuild(t, out)
	require.NotNil(t, first.Catalog)
	assert.True(t, first.Catalog.Inserted)
	assert.Len(t, first.Catalog.BuildID, 36)

	out, _, err = execute(NewBuildCommand(&RootOptions{Format: "text"}), dir, "--catalog", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog: "+db+" build "+first.Catalog.BuildID+" (already present)")
}

func TestBuild_FlagsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ModelDir = writeDomain(t, shopSource)
	cfg.Catalog = filepath.Join(t.TempDir(), "catalog.db")
	cfg.DDL = true

	out, _, err := execute(NewBuildCommand(&RootOptions{Format: "json", Config: cfg}))
	require.NoError(t, err)

	result := decodeBuild(t, out)
	require.NotNil(t, result.Catalog)
	assert.Equal(t, cfg.Catalog, result.Catalog.Path)
	assert.Contains(t, result.DDL, `CREATE INDEX "IX_Placed"`)

	// explicit flags win over the config
	out, _, err = execute(NewBuildCommand(&RootOptions{Format: "json", Config: cfg}), "--ddl=false")
	require.NoError(t, err)
	assert.Empty(t, decodeBuild(t, out).DDL)
}

func TestBuild_MaxNameLength(t *testing.T) {
	src := `
package shop

type: Order: {
	hierarchy: {schema: "ClassTable", key: ["Id"]}
	fields: {
		Id: type:     "int64"
		Placed: type: "datetime"
	}
	index: IX_Order_Placed_Descending_With_A_Long_Name: keys: ["-Placed"]
}
`
	out, _, err := execute(NewBuildCommand(&RootOptions{Format: "text"}), writeDomain(t, src), "--ddl", "--max-name-length", "24")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`CREATE INDEX "IX_Order_Placed_[0-9a-f]{8}" ON "Order"`), out)
}

func TestBuild_BuilderError(t *testing.T) {
	src := `
package shop

type: Order: {
	hierarchy: {schema: "ClassTable", key: ["Id"]}
	fields: Id: type: "int64"
	index: IX_Missing: keys: ["Missing"]
}
`
	out, _, err := execute(NewBuildCommand(&RootOptions{Format: "json"}), writeDomain(t, src))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNRESOLVED_FIELD", resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Order", details["type"])
	assert.Equal(t, false, details["internal"])
}

func TestBuild_ValidationErrorsStopBuild(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	out, _, err := execute(NewBuildCommand(&RootOptions{Format: "text"}), writeDomain(t, invalidSource), "--catalog", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")

	_, statErr := os.Stat(db)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuild_UnwritableOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "shop.json")
	out, _, err := execute(NewBuildCommand(&RootOptions{Format: "text"}), writeDomain(t, shopSource), "-o", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E007]")
}
