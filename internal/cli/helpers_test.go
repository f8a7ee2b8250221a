package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// sequenceQuery is a query with one sequence marker joining companies to
// articles.
const sequenceQuery = `{
  "size": 10,
  "query": {
    "join_sequence": [
      {"relation": [
        {"path": "id", "indices": ["companies"]},
        {"path": "companyid", "indices": ["articles"]}
      ]}
    ]
  }
}`

// unknownIndexQuery references an index that is missing from indexes.
const unknownIndexQuery = `{
  "join": {
    "focus": "a",
    "relations": [["a.id", "b.aid"]],
    "indexes": [{"id": "a"}]
  }
}`

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// decodeResponse parses a JSON CLI response. Data is left as generic JSON.
func decodeResponse(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)

	var raw struct {
		Data map[string]any `json:"data"`
	}
	_ = json.Unmarshal([]byte(out), &raw)
	return resp, raw.Data
}
