package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const shopSource = `
package shop

name: "shop"

type: Order: {
	hierarchy: {schema: "ClassTable", key: ["Id"]}
	fields: {
		Id: type:     "int64"
		Placed: type: "datetime"
		Total: type:  "int64"
	}
	index: IX_Placed: {keys: ["-Placed"], include: ["Total"]}
}
`

// writeDomain writes each source into its own file of a fresh directory.
func writeDomain(t *testing.T, sources ...string) string {
	t.Helper()
	dir := t.TempDir()
	for i, src := range sources {
		name := filepath.Join(dir, "domain"+string(rune('a'+i))+".cue")
		require.NoError(t, os.WriteFile(name, []byte(src), 0644))
	}
	return dir
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
