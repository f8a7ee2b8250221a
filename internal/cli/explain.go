package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/roach88/filterjoin/internal/compiler"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Mode           string
	DuplicateEdges string
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <file>",
		Short: "Show the joins each marker compiles to",
		Long: `Compile a query document and print one row per filterjoin clause:
the marker it came from, its nesting depth, the joined paths, the target
indices and whether it is negated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(compiler.ModeAll), "markers to compile (graph|sequence|all)")
	cmd.Flags().StringVar(&opts.DuplicateEdges, "duplicate-edges", string(compiler.DuplicateEdgesFirst), "graph duplicate edge policy (first|reject)")

	return cmd
}

func runExplain(opts *ExplainOptions, path string, cmd *cobra.Command) error {
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

	result, err := compileLoaded(c, mode, loaded)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result.report)
	}

	fmt.Fprint(formatter.Writer, renderJoinTable(result.report, useColor(formatter.Writer)))
	return nil
}

// useColor reports whether w is a terminal that accepts colour codes.
func useColor(w io.Writer) bool {
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (f == os.Stdout || f == os.Stderr)
}

func colorize(enabled bool, text string, attrs ...color.Attribute) string {
	if !enabled {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// renderJoinTable formats a report as a markdown table.
func renderJoinTable(report *compiler.Report, colored bool) string {
	if report.Joins() == 0 {
		return "_No joins_\n"
	}

	columns := []string{"#", "Marker", "Path", "Depth", "Join", "Indices", "Negate"}
	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	out := &strings.Builder{}
	table := tablewriter.NewTable(out,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(columns)

	n := 0
	for _, occ := range report.Occurrences {
		for _, j := range occ.Joins {
			n++
			negate := ""
			if j.Negate {
				negate = colorize(colored, "yes", color.FgRed)
			}
			table.Append([]string{
				strconv.Itoa(n),
				colorize(colored, occ.Marker, color.FgCyan),
				occ.Path.String(),
				strconv.Itoa(j.Depth),
				j.SourcePath + " -> " + j.TargetPath,
				strings.Join(j.Indices, ", "),
				negate,
			})
		}
	}
	table.Render()

	fmt.Fprintf(out, "\n_%d join(s) in %d marker(s)_\n", n, len(report.Occurrences))
	return out.String()
}
