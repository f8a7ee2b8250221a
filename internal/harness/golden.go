package harness

import (
	"errors"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/filterjoin/internal/compiler"
	"github.com/roach88/filterjoin/internal/doc"
)

// Snapshot renders the observable outcome of a scenario as indented JSON:
// the scenario name and either the output document and joins, or the error.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := doc.Object{"scenario_name": doc.String(scenario.Name)}

	if result.Err != nil {
		errObj := doc.Object{"message": doc.String(result.Err.Error())}
		var compileErr *compiler.Error
		if errors.As(result.Err, &compileErr) {
			errObj["code"] = doc.String(compileErr.Code)
			errObj["kind"] = doc.String(string(compileErr.Kind))
		}
		snapshot["error"] = errObj
		return doc.Indent(snapshot)
	}

	snapshot["output"] = result.Output
	joins := doc.Array{}
	for _, occ := range result.Report.Occurrences {
		for _, j := range occ.Joins {
			record := doc.Object{
				"marker":      doc.String(occ.Marker),
				"path":        doc.String(occ.Path.String()),
				"depth":       doc.Number(strconv.Itoa(j.Depth)),
				"source_path": doc.String(j.SourcePath),
				"target_path": doc.String(j.TargetPath),
			}
			if j.Negate {
				record["negate"] = doc.Bool(true)
			}
			joins = append(joins, record)
		}
	}
	snapshot["joins"] = joins
	return doc.Indent(snapshot)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/<scenario.Name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := Snapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
