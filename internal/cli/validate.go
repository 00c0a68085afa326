package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/polyindex/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Domain string                     `json:"domain,omitempty"`
	Types  int                        `json:"types"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [model-dir]",
		Short: "Check domain definitions without building indexes",
		Long: `Compile the CUE domain in model-dir and run the structural checks:
unknown bases and interfaces, missing or misplaced hierarchies, key fields,
definition cycles, field shapes, enum values and index declarations.

All problems are reported, not just the first. The directory defaults to
model_dir from the config file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	dir, err := modelDir(opts, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNoArgs, err.Error(), nil)
	}

	loaded, err := LoadDomain(dir)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	d := loaded.Domain
	errs := compiler.Validate(d)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, d.Name, errs)
	}

	result := ValidationResult{Valid: true, Domain: d.Name, Types: len(d.Types)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Domain %s valid (%d type(s))\n", d.Name, len(d.Types))
	return nil
}

// modelDir picks the positional directory, falling back to the config.
func modelDir(opts *RootOptions, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if dir := opts.config().ModelDir; dir != "" {
		return dir, nil
	}
	return "", fmt.Errorf("no model directory given and model_dir is not configured")
}

// outputValidationErrors reports structural problems. They are failures
// of the domain, not of the command: exit code 1.
func outputValidationErrors(formatter *OutputFormatter, domain string, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Domain: domain, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		})
		if err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	return exitErr
}
