package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/roach88/filterjoin/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath string
	Limit  int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded translations",
		Long: `List the most recent translations recorded by compile --db or the
server, newest first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", os.Getenv("FILTERJOIN_DB"), "path to the translation database")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of translations to list")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.DBPath == "" {
		return outputCommandError(formatter, ErrCodeNotFound, "--db is required")
	}
	if opts.Limit <= 0 {
		return outputCommandError(formatter, ErrCodeGeneric, "--limit must be positive")
	}
	if _, err := os.Stat(opts.DBPath); err != nil {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.DBPath))
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
	}
	defer st.Close()

	translations, err := st.Latest(cmd.Context(), opts.Limit)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(translations)
	}

	fmt.Fprint(formatter.Writer, renderHistoryTable(translations, useColor(formatter.Writer)))
	return nil
}

func renderHistoryTable(translations []store.Translation, colored bool) string {
	if len(translations) == 0 {
		return "_No translations recorded_\n"
	}

	columns := []string{"Seq", "ID", "Mode", "Joins", "Status", "Input"}
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

	for _, t := range translations {
		status := colorize(colored, "ok", color.FgGreen)
		if t.Failed() {
			code := t.ErrorCode
			if code == "" {
				code = "error"
			}
			status = colorize(colored, code, color.FgRed)
		}
		table.Append([]string{
			strconv.FormatInt(t.Seq, 10),
			t.ID,
			t.Mode,
			strconv.Itoa(t.Joins),
			status,
			shortHash(t.InputHash),
		})
	}
	table.Render()

	fmt.Fprintf(out, "\n_%d translation(s)_\n", len(translations))
	return out.String()
}

// shortHash trims a content hash for display.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
