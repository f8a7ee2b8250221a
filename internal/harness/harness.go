package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/filterjoin/internal/compiler"
)

// Run executes a scenario and returns the result.
//
// The returned error covers problems with the scenario itself, such as an
// unreadable input file. Compile errors are part of the result and are
// judged by the assertions.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with compiler debug output sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	mode, err := compiler.ParseMode(scenario.Mode)
	if err != nil {
		return nil, err
	}
	policy, err := compiler.ParseDuplicateEdgePolicy(scenario.DuplicateEdges)
	if err != nil {
		return nil, err
	}

	input, err := scenario.loadInput()
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}

	c := compiler.New(compiler.WithLogger(logger), compiler.WithDuplicateEdges(policy))

	result := NewResult()
	result.Output, result.Report, result.Err = c.Compile(mode, input)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}
