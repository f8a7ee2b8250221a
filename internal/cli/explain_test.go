package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filterjoin/internal/compiler"
	"github.com/roach88/filterjoin/internal/doc"
)

func TestExplain_Table(t *testing.T) {
	path := writeFile(t, t.TempDir(), "query.json", sequenceQuery)

	out, _, err := execute(t, "", "explain", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Marker")
	assert.Contains(t, out, "join_sequence")
	assert.Contains(t, out, `["query","join_sequence"]`)
	assert.Contains(t, out, "companies")
	assert.Contains(t, out, "_1 join(s) in 1 marker(s)_")
}

func TestExplain_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "query.json", sequenceQuery)

	out, _, err := execute(t, "", "--format", "json", "explain", path)
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	occurrences := data["occurrences"].([]any)
	require.Len(t, occurrences, 1)
	joins := occurrences[0].(map[string]any)["joins"].([]any)
	require.Len(t, joins, 1)
	join := joins[0].(map[string]any)
	assert.Equal(t, float64(0), join["depth"])
	assert.Equal(t, []any{"companies"}, join["indices"])
}

func TestExplain_CompileError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "query.json", unknownIndexQuery)

	out, _, err := execute(t, "", "explain", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E220]")
}

func TestRenderJoinTable(t *testing.T) {
	report := &compiler.Report{Occurrences: []compiler.OccurrenceReport{{
		Marker: compiler.MarkerGraph,
		Path:   doc.Path{doc.Key("join")},
		Joins: []compiler.JoinRecord{
			{Depth: 0, SourcePath: "aid", TargetPath: "id", Indices: []string{"b"}},
			{Depth: 1, SourcePath: "bid", TargetPath: "id", Indices: []string{"c", "d"}, Negate: true},
		},
	}}}

	out := renderJoinTable(report, false)
	assert.Contains(t, out, "aid -> id")
	assert.Contains(t, out, "c, d")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "_2 join(s) in 1 marker(s)_")

	assert.Equal(t, "_No joins_\n", renderJoinTable(&compiler.Report{}, false))
}

func TestUseColor_NonTerminal(t *testing.T) {
	assert.False(t, useColor(&bytesWriter{}))
	assert.Equal(t, "plain", colorize(false, "plain"))
}

type bytesWriter struct{}

func (bytesWriter) Write(p []byte) (int, error) { return len(p), nil }
