package indexing

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/polyindex/internal/model"
	"github.com/roach88/polyindex/internal/modeldef"
	"github.com/roach88/polyindex/internal/testutil"
)

func quietOptions() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func mustBuild(t *testing.T, d *modeldef.Domain) (*model.Model, *Report) {
	t.Helper()
	m := testutil.Resolve(t, d)
	report, err := Build(m, quietOptions())
	require.NoError(t, err)
	return m, report
}

func buildErrOf(t *testing.T, d *modeldef.Domain) *BuildError {
	t.Helper()
	m := testutil.Resolve(t, d)
	_, err := Build(m, quietOptions())
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	return be
}

func names(ixs []*model.Index) []string {
	out := make([]string, len(ixs))
	for i, ix := range ixs {
		out[i] = ix.Name
	}
	return out
}

func typeNames(m *model.Model, ids []model.TypeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = m.NameOf(id)
	}
	return out
}

func columnNames(cols []*model.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// signature renders every index set with composition trees, for comparing
// two builds.
func signature(m *model.Model) string {
	var sb strings.Builder
	var write func(ix *model.Index, depth int)
	write = func(ix *model.Index, depth int) {
		fmt.Fprintf(&sb, "%s%s %s %s keys=%v values=%v",
			strings.Repeat("  ", depth), ix.Name, ix.Kind(), ix.Attributes,
			ix.KeyColumnNames(), ix.ValueColumnNames())
		switch c := ix.Composition.(type) {
		case model.Filtered:
			fmt.Fprintf(&sb, " types=%v", typeNames(m, c.Types))
		case model.Joined:
			fmt.Fprintf(&sb, " map=%v", c.Map)
		case model.View:
			fmt.Fprintf(&sb, " select=%v", c.Select)
		}
		sb.WriteString("\n")
		for _, u := range ix.Underlying {
			write(u, depth+1)
		}
	}
	for _, t := range m.Types {
		fmt.Fprintf(&sb, "type %s\n", t.Name)
		for _, ix := range t.Indexes.All() {
			write(ix, 1)
		}
		fmt.Fprintf(&sb, "  affected=%v\n", names(t.AffectedIndexes))
	}
	return sb.String()
}
