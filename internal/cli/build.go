package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/polyindex/internal/catalog"
	"github.com/roach88/polyindex/internal/compiler"
	"github.com/roach88/polyindex/internal/ddl"
	"github.com/roach88/polyindex/internal/indexing"
	"github.com/roach88/polyindex/internal/modeldef"
	"github.com/roach88/polyindex/internal/snapshot"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Catalog       string // SQLite catalog path
	DDL           bool   // print CREATE INDEX statements
	Output        string // snapshot output file path
	MaxNameLength int
}

// BuildResult summarizes one build.
type BuildResult struct {
	Domain         string         `json:"domain"`
	Hash           string         `json:"hash"`
	Types          int            `json:"types"`
	RealIndexes    int            `json:"real_indexes"`
	VirtualIndexes int            `json:"virtual_indexes"`
	RemovedTyped   int            `json:"removed_typed"`
	Warnings       []BuildWarning `json:"warnings,omitempty"`
	Output         string         `json:"output,omitempty"`
	Catalog        *CatalogWrite  `json:"catalog,omitempty"`
	DDL            string         `json:"ddl,omitempty"`
}

// BuildWarning is a non-fatal finding of the builder.
type BuildWarning struct {
	Type    string `json:"type"`
	Index   string `json:"index,omitempty"`
	Message string `json:"message"`
}

// CatalogWrite reports where a build was stored.
type CatalogWrite struct {
	Path     string `json:"path"`
	BuildID  string `json:"build_id"`
	Inserted bool   `json:"inserted"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build [model-dir]",
		Short: "Build the index sets of a domain",
		Long: `Validate and resolve the CUE domain in model-dir, then derive every
real and virtual index of every type.

The result can be written as a canonical JSON snapshot (-o), stored in a
SQLite catalog (--catalog) and rendered as CREATE INDEX statements (--ddl).
Storing the same model twice reuses the existing catalog build.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "store the build in this SQLite catalog")
	cmd.Flags().BoolVar(&opts.DDL, "ddl", false, "print CREATE INDEX statements for stored secondary indexes")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonical snapshot to this file")
	cmd.Flags().IntVar(&opts.MaxNameLength, "max-name-length", 0, "truncate longer index names with a hash suffix (0: no limit)")

	return cmd
}

// applyConfig fills flags the user did not set from the config file.
func (o *BuildOptions) applyConfig(cmd *cobra.Command) {
	cfg := o.config()
	if !cmd.Flags().Changed("catalog") {
		o.Catalog = cfg.Catalog
	}
	if !cmd.Flags().Changed("ddl") {
		o.DDL = cfg.DDL
	}
	if !cmd.Flags().Changed("max-name-length") {
		o.MaxNameLength = cfg.Naming.MaxLength
	}
}

func runBuild(opts *BuildOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	opts.applyConfig(cmd)

	dir, err := modelDir(opts.RootOptions, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNoArgs, err.Error(), nil)
	}

	loaded, err := LoadDomain(dir)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	d := loaded.Domain
	if errs := compiler.Validate(d); len(errs) > 0 {
		return outputValidationErrors(formatter, d.Name, errs)
	}

	m, err := modeldef.Resolve(d)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeResolveFailed, err.Error(), nil)
	}

	report, err := indexing.Build(m, indexing.Options{
		Logger:        opts.logger(cmd.ErrOrStderr()),
		MaxNameLength: opts.MaxNameLength,
	})
	if err != nil {
		return buildFailure(formatter, err)
	}

	snap := snapshot.Render(m)
	hash, err := snap.Hash()
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, fmt.Sprintf("hash snapshot: %v", err), nil)
	}

	result := &BuildResult{
		Domain:         d.Name,
		Hash:           hash,
		Types:          report.Types,
		RealIndexes:    report.RealIndexes,
		VirtualIndexes: report.VirtualIndexes,
		RemovedTyped:   report.RemovedTyped,
	}
	for _, w := range report.Warnings {
		result.Warnings = append(result.Warnings, BuildWarning{Type: w.Type, Index: w.Index, Message: w.Message})
	}

	if opts.Output != "" {
		if err := writeSnapshot(snap, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		result.Output = opts.Output
	}

	if opts.Catalog != "" {
		write, err := storeBuild(cmd, opts.Catalog, snap)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
		}
		formatter.VerboseLog("Catalog build %s (inserted=%v)", write.BuildID, write.Inserted)
		result.Catalog = write
	}

	if opts.DDL {
		script, err := ddl.Script(m)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
		}
		result.DDL = script
	}

	return outputBuildSuccess(formatter, result)
}

func storeBuild(cmd *cobra.Command, path string, snap *snapshot.Snapshot) (*CatalogWrite, error) {
	cat, err := catalog.Open(path)
	if err != nil {
		return nil, err
	}
	defer cat.Close()

	b, inserted, err := cat.WriteBuild(cmd.Context(), snap)
	if err != nil {
		return nil, err
	}
	return &CatalogWrite{Path: path, BuildID: b.ID, Inserted: inserted}, nil
}

func writeSnapshot(snap *snapshot.Snapshot, path string) error {
	data, err := snapshot.MarshalCanonical(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// buildFailure reports a builder error under its own code. Builder bugs
// are distinguished from definition errors in the details.
func buildFailure(formatter *OutputFormatter, err error) error {
	var be *indexing.BuildError
	if !errors.As(err, &be) {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	details := map[string]any{"internal": indexing.IsInternalError(err)}
	if be.Type != "" {
		details["type"] = be.Type
	}
	if be.Index != "" {
		details["index"] = be.Index
	}
	if be.Field != "" {
		details["field"] = be.Field
	}
	if len(be.Details) > 0 {
		details["details"] = be.Details
	}
	return formatter.Fail(ExitFailure, string(be.Code), be.Error(), details)
}

func outputBuildSuccess(formatter *OutputFormatter, result *BuildResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Built domain %s: %d type(s), %d real index(es), %d virtual index(es)\n",
		result.Domain, result.Types, result.RealIndexes, result.VirtualIndexes)
	fmt.Fprintf(w, "  Hash: %s\n", result.Hash)
	if result.RemovedTyped > 0 {
		fmt.Fprintf(w, "  Removed typed indexes: %d\n", result.RemovedTyped)
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  Warning [%s/%s]: %s\n", warn.Type, warn.Index, warn.Message)
	}
	if result.Output != "" {
		fmt.Fprintf(w, "  Snapshot: %s\n", result.Output)
	}
	if c := result.Catalog; c != nil {
		state := "stored"
		if !c.Inserted {
			state = "already present"
		}
		fmt.Fprintf(w, "  Catalog: %s build %s (%s)\n", c.Path, c.BuildID, state)
	}
	if result.DDL != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, result.DDL)
	}
	return nil
}
