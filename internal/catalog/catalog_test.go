package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyindex/internal/indexing"
	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/modeldef"
	"github.com/roach88/polyindex/internal/snapshot"
	"github.com/roach88/polyindex/internal/testutil"
)

func createTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(path,
		WithIDGenerator(testutil.NewFixedIDGenerator("")),
		WithClock(testutil.NewDeterministicClock()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func render(t *testing.T, d *modeldef.Domain) *snapshot.Snapshot {
	t.Helper()
	m := testutil.Resolve(t, d)
	_, err := indexing.Build(m, indexing.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	return snapshot.Render(m)
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	for i := 0; i < 3; i++ {
		c, err := Open(path)
		require.NoError(t, err, "open %d", i)
		require.NoError(t, c.Close())
	}
	_, err := os.Stat(path)
	require.NoError(t, err)

	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	for _, table := range []string{"builds", "types", "indexes", "affected_indexes"} {
		var name string
		err := c.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	c := createTestCatalog(t)

	assert.NoError(t, c.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, c.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, c.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, c.verifyPragma("user_version", "1"))
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(path)
	require.NoError(t, err)
	_, err = c.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestWriteBuild_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)
	s := render(t, testutil.ZooDomain())

	b, inserted, err := c.WriteBuild(ctx, s)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "build-0001", b.ID)
	assert.Equal(t, "zoo", b.Domain)
	assert.Equal(t, int64(1), b.Seq)
	hash, err := s.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, b.Hash)

	types, err := c.ReadTypes(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, types, len(s.Types))
	assert.Equal(t, TypeRecord{Name: "Animal", Kind: "entity", Schema: "ClassTable", Abstract: true}, types[2])
	assert.Equal(t, TypeRecord{Name: "INamed", Kind: "interface"}, types[1])

	indexes, err := c.ReadIndexes(ctx, b.ID)
	require.NoError(t, err)
	total := 0
	for _, typ := range s.Types {
		total += len(typ.Indexes)
	}
	require.Len(t, indexes, total)
	assert.Equal(t, "Person", indexes[0].Type)
	assert.Equal(t, "PK_Person", indexes[0].Name)
	assert.Equal(t, []string{"Region asc", "Number asc"}, indexes[0].Keys)
	assert.Equal(t, []string{}, indexes[0].Underlying)

	var owner *IndexRecord
	for i := range indexes {
		if indexes[i].Type == "Animal" && indexes[i].Name == "IX_Owner" {
			owner = &indexes[i]
		}
	}
	require.NotNil(t, owner)
	assert.Equal(t, "e => (e.Owner != null)", owner.Filter)
	assert.NotEmpty(t, owner.Condition)
	assert.Contains(t, owner.Attributes, "partial")

	dog, ok := s.Find("Dog")
	require.True(t, ok)
	affected, err := c.ReadAffected(ctx, b.ID, "Dog")
	require.NoError(t, err)
	assert.Equal(t, dog.Affected, affected)

	stored, err := c.ReadSnapshot(ctx, b.ID)
	require.NoError(t, err)
	storedHash, err := stored.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, storedHash)
}

func TestWriteBuild_IdempotentOnHash(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)

	first, inserted, err := c.WriteBuild(ctx, render(t, testutil.ZooDomain()))
	require.NoError(t, err)
	require.True(t, inserted)

	again, inserted, err := c.WriteBuild(ctx, render(t, testutil.ZooDomain()))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first, again)

	builds, err := c.Builds(ctx)
	require.NoError(t, err)
	assert.Len(t, builds, 1)
}

func TestLatestBuild(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)

	_, err := c.LatestBuild(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = c.WriteBuild(ctx, render(t, testutil.ChainDomain(model.ClassTable)))
	require.NoError(t, err)
	second, _, err := c.WriteBuild(ctx, render(t, testutil.ChainDomain(model.SingleTable)))
	require.NoError(t, err)

	latest, err := c.LatestBuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, latest)
	assert.Equal(t, "build-0002", latest.ID)

	builds, err := c.Builds(ctx)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, "build-0001", builds[0].ID)
}

func TestRead_Missing(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)

	_, err := c.ReadBuild(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.ReadSnapshot(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	indexes, err := c.ReadIndexes(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, indexes)
}

func TestDefaultIDsAreUUIDs(t *testing.T) {
	ctx := context.Background()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer c.Close()

	b, _, err := c.WriteBuild(ctx, render(t, testutil.ChainDomain(model.ClassTable)))
	require.NoError(t, err)
	assert.Len(t, b.ID, 36)
	assert.Positive(t, b.Seq)
}
