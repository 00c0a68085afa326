package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/polyindex/internal/catalog"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	BuildID string
	Type    string
}

// InspectResult is the stored content of one catalog build.
type InspectResult struct {
	Build    catalog.Build         `json:"build"`
	Types    []catalog.TypeRecord  `json:"types"`
	Indexes  []catalog.IndexRecord `json:"indexes"`
	Affected map[string][]string   `json:"affected,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [catalog-db]",
		Short: "Show a build stored in a catalog",
		Long: `Print the types and indexes of a catalog build, the latest one unless
--build names another. --type narrows the listing to one type and adds its
affected index set.

The catalog defaults to the catalog path from the config file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BuildID, "build", "", "build id (default: latest)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only show this type")

	return cmd
}

func runInspect(opts *InspectOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path := opts.config().Catalog
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeNoArgs, "no catalog given and catalog is not configured", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("catalog not found: %s", path), nil)
	}

	cat, err := catalog.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}
	defer cat.Close()

	ctx := cmd.Context()
	var b catalog.Build
	if opts.BuildID != "" {
		b, err = cat.ReadBuild(ctx, opts.BuildID)
	} else {
		b, err = cat.LatestBuild(ctx)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		if opts.BuildID != "" {
			return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("build %s not found", opts.BuildID), nil)
		}
		return formatter.Fail(ExitFailure, ErrCodeNotFound, "catalog holds no builds", nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}
	formatter.VerboseLog("Inspecting build %s (seq %d)", b.ID, b.Seq)

	result := &InspectResult{Build: b}
	if result.Types, err = cat.ReadTypes(ctx, b.ID); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}
	if result.Indexes, err = cat.ReadIndexes(ctx, b.ID); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}

	if opts.Type != "" {
		if err := narrowToType(result, opts.Type); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeNotFound, err.Error(), nil)
		}
		affected, err := cat.ReadAffected(ctx, b.ID, opts.Type)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
		}
		result.Affected = map[string][]string{opts.Type: affected}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	printInspect(formatter, result)
	return nil
}

func narrowToType(result *InspectResult, name string) error {
	var types []catalog.TypeRecord
	for _, t := range result.Types {
		if t.Name == name {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return fmt.Errorf("type %s not found in build %s", name, result.Build.ID)
	}
	var indexes []catalog.IndexRecord
	for _, ix := range result.Indexes {
		if ix.Type == name {
			indexes = append(indexes, ix)
		}
	}
	result.Types, result.Indexes = types, indexes
	return nil
}

func printInspect(formatter *OutputFormatter, result *InspectResult) {
	w := formatter.Writer
	b := result.Build
	fmt.Fprintf(w, "Build %s (domain %s, seq %d)\n", b.ID, b.Domain, b.Seq)
	fmt.Fprintf(w, "Hash: %s\n", b.Hash)

	byType := make(map[string][]catalog.IndexRecord)
	for _, ix := range result.Indexes {
		byType[ix.Type] = append(byType[ix.Type], ix)
	}

	for _, t := range result.Types {
		fmt.Fprintln(w)
		header := t.Name + " " + t.Kind
		if t.Schema != "" {
			header += " " + t.Schema
		}
		if t.Abstract {
			header += " abstract"
		}
		fmt.Fprintf(w, "=== %s ===\n", header)

		indexes := byType[t.Name]
		if len(indexes) == 0 {
			fmt.Fprintln(w, "  (no indexes)")
		}
		for _, ix := range indexes {
			fmt.Fprintf(w, "  %s %s [%s]\n", ix.Name, ix.Kind, ix.Attributes)
			fmt.Fprintf(w, "       Keys: %s\n", strings.Join(ix.Keys, ", "))
			if len(ix.Included) > 0 {
				fmt.Fprintf(w, "       Included: %s\n", strings.Join(ix.Included, ", "))
			}
			if len(ix.Underlying) > 0 {
				fmt.Fprintf(w, "       Over: %s\n", strings.Join(ix.Underlying, ", "))
			}
			if ix.Filter != "" {
				fmt.Fprintf(w, "       Filter: %s\n", ix.Filter)
			}
		}
		if affected, ok := result.Affected[t.Name]; ok {
			fmt.Fprintf(w, "  Affected: %s\n", strings.Join(affected, ", "))
		}
	}
}
