package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/filterjoin/internal/compiler"
	"github.com/roach88/filterjoin/internal/doc"
)

// ValidationError is one problem found in a query document.
type ValidationError struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Path    string `json:"path,omitempty"`
	Search  *int   `json:"search,omitempty"` // NDJSON body index
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	DuplicateEdges string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check join markers without writing output",
		Long: `Check every join and join_sequence marker in a query document.

Unlike compile, validate does not stop at the first bad marker: every
problem is reported. No output document is produced.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DuplicateEdges, "duplicate-edges", string(compiler.DuplicateEdgesFirst), "graph duplicate edge policy (first|reject)")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	c, _, err := newCompiler(opts.RootOptions, string(compiler.ModeAll), opts.DuplicateEdges, cmd)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	loaded, err := LoadDocument(path, cmd.InOrStdin())
	if err != nil {
		code, message := loadErrorCode(err)
		return outputCommandError(formatter, code, message)
	}

	var errs []ValidationError
	for i, d := range loaded.Documents() {
		markers := len(doc.Locate(d, compiler.MarkerGraph)) + len(doc.Locate(d, compiler.MarkerSequence))
		formatter.VerboseLog("Validating %d marker(s) in document %d", markers, i)

		for _, e := range c.Validate(d) {
			ve := toValidationError(e)
			if loaded.Bulk() {
				search := i
				ve.Search = &search
			}
			errs = append(errs, ve)
		}
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	return outputValidateSuccess(formatter)
}

func toValidationError(err error) ValidationError {
	var compileErr *compiler.Error
	if errors.As(err, &compileErr) {
		ve := ValidationError{
			Code:    compileErr.Code,
			Kind:    string(compileErr.Kind),
			Message: compileErr.Message,
		}
		if len(compileErr.Path) > 0 {
			ve.Path = compileErr.Path.String()
		}
		return ve
	}
	return ValidationError{Code: ErrCodeGeneric, Message: err.Error()}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}

	fmt.Fprintln(formatter.Writer, "✓ All markers valid")
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		result := ValidationResult{Valid: false, Errors: errs}
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		location := e.Path
		if e.Search != nil {
			location = fmt.Sprintf("search %d %s", *e.Search, e.Path)
		}
		if location != "" {
			fmt.Fprintln(formatter.Writer, location)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", e.Code, e.Message)
	}

	return failure
}
