package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/filterjoin/internal/compiler"
	"github.com/roach88/filterjoin/internal/doc"
	"github.com/roach88/filterjoin/internal/msearch"
	"github.com/roach88/filterjoin/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output         string // output file path
	Mode           string // graph | sequence | all
	DuplicateEdges string // first | reject
	DBPath         string // translation store, optional
}

// CompilationResult is the JSON payload of a successful compile.
type CompilationResult struct {
	Output doc.Value        `json:"output"`
	Report *compiler.Report `json:"report"`
	ID     string           `json:"id,omitempty"`
}

// compiled is the outcome of compiling a loaded input.
type compiled struct {
	mode     compiler.Mode
	input    doc.Value
	output   doc.Value        // the document, or an array of bodies for NDJSON
	searches []msearch.Search // NDJSON only
	report   *compiler.Report
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile join markers in a query document",
		Long: `Compile join and join_sequence markers into nested filterjoin clauses.

The input may be JSON, YAML, CUE, or an NDJSON multi-search body, in which
case every search body is compiled and headers are passed through. Use "-"
to read JSON from stdin.

With --db, the translation is recorded in a SQLite store.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Mode, "mode", string(compiler.ModeAll), "markers to compile (graph|sequence|all)")
	cmd.Flags().StringVar(&opts.DuplicateEdges, "duplicate-edges", string(compiler.DuplicateEdgesFirst), "graph duplicate edge policy (first|reject)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record the translation in this SQLite database")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	c, mode, err := newCompiler(opts.RootOptions, opts.Mode, opts.DuplicateEdges, cmd)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	loaded, err := LoadDocument(path, cmd.InOrStdin())
	if err != nil {
		code, message := loadErrorCode(err)
		return outputCommandError(formatter, code, message)
	}
	formatter.VerboseLog("Loaded %s input from %s", loaded.Format, path)

	result, compileErr := compileLoaded(c, mode, loaded)

	var id string
	if opts.DBPath != "" {
		id, err = recordTranslation(cmd.Context(), opts.DBPath, result, compileErr)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
		}
		formatter.VerboseLog("Recorded translation %s in %s", id, opts.DBPath)
	}

	if compileErr != nil {
		return outputCompileError(formatter, compileErr)
	}

	for _, occ := range result.report.Occurrences {
		formatter.VerboseLog("Compiled %s at %s: %d join(s)", occ.Marker, occ.Path, len(occ.Joins))
	}

	if opts.Output != "" {
		if err := writeCompiled(result, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, id, opts.Output)
}

// newCompiler builds a compiler from the mode and policy flags.
func newCompiler(opts *RootOptions, modeFlag, policyFlag string, cmd *cobra.Command) (*compiler.Compiler, compiler.Mode, error) {
	mode, err := compiler.ParseMode(modeFlag)
	if err != nil {
		return nil, "", err
	}
	policy, err := compiler.ParseDuplicateEdgePolicy(policyFlag)
	if err != nil {
		return nil, "", err
	}
	c := compiler.New(
		compiler.WithLogger(opts.logger(cmd.ErrOrStderr())),
		compiler.WithDuplicateEdges(policy),
	)
	return c, mode, nil
}

// compileLoaded compiles the loaded document, or every body of a
// multi-search input. The returned result always carries the input so a
// failure can still be recorded.
func compileLoaded(c *compiler.Compiler, mode compiler.Mode, loaded *LoadResult) (*compiled, error) {
	result := &compiled{mode: mode, report: &compiler.Report{}}

	if !loaded.Bulk() {
		result.input = loaded.Document
		out, report, err := c.Compile(mode, loaded.Document)
		if err != nil {
			return result, err
		}
		result.output = out
		result.report = report
		return result, nil
	}

	result.input = doc.Array(loaded.Documents())
	searches, err := msearch.Map(loaded.Searches, func(body doc.Value) (doc.Value, error) {
		out, report, err := c.Compile(mode, body)
		if err != nil {
			return nil, err
		}
		result.report.Occurrences = append(result.report.Occurrences, report.Occurrences...)
		return out, nil
	})
	if err != nil {
		return result, err
	}
	result.searches = searches
	result.output = doc.Array(msearch.Bodies(searches))
	return result, nil
}

// recordTranslation writes one translation record and returns its id.
func recordTranslation(ctx context.Context, dbPath string, result *compiled, compileErr error) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	tr, err := store.NewTranslation(string(result.mode), result.input, result.output, result.report.Joins(), compileErr)
	if err != nil {
		return "", err
	}
	tr, err = st.Record(ctx, tr)
	if err != nil {
		return "", err
	}
	return tr.ID, nil
}

// render returns the compiled output as file content: indented JSON for a
// document, NDJSON for a multi-search body.
func (r *compiled) render() ([]byte, error) {
	if r.searches != nil {
		return msearch.Encode(r.searches)
	}
	data, err := doc.Indent(r.output)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func writeCompiled(result *compiled, filename string) error {
	data, err := result.render()
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *compiled, id, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(CompilationResult{
			Output: result.output,
			Report: result.report,
			ID:     id,
		})
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "✓ Compiled %d marker(s), %d join(s)\n",
			len(result.report.Occurrences), result.report.Joins())
		fmt.Fprintf(formatter.Writer, "Wrote compiled query to %s\n", outputFile)
		return nil
	}

	data, err := result.render()
	if err != nil {
		return err
	}
	_, err = formatter.Writer.Write(data)
	return err
}

// outputCompileError outputs a compile failure. Coded errors keep their
// code; anything else is reported as generic.
func outputCompileError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var details any
	var compileErr *compiler.Error
	if errors.As(err, &compileErr) {
		code = compileErr.Code
		message = strings.Replace(message, "["+code+"] ", "", 1)
		details = map[string]string{
			"kind": string(compileErr.Kind),
			"path": compileErr.Path.String(),
		}
	}
	_ = formatter.Error(code, message, details)
	return WrapExitError(ExitCommandError, "compilation failed", err)
}

// outputCommandError outputs a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
