package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/filterjoin/internal/compiler"
	"github.com/roach88/filterjoin/internal/doc"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string

	if result.Err != nil && !anyExpectsError(assertions) {
		failures = append(failures, fmt.Sprintf("unexpected compile error: %v", result.Err))
	}

	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func anyExpectsError(assertions []Assertion) bool {
	for _, a := range assertions {
		if a.expectsError() {
			return true
		}
	}
	return false
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCompiles:
		return assertCompiles(result)
	case AssertOutputEquals:
		return assertOutputEquals(result, a)
	case AssertOutputAt:
		return assertOutputAt(result, a)
	case AssertErrorCode:
		return assertErrorCode(result, a)
	case AssertErrorKind:
		return assertErrorKind(result, a)
	case AssertJoinCount:
		return assertJoinCount(result, a)
	case AssertNoMarker:
		return assertNoMarker(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertCompiles(result *Result) error {
	if result.Err == nil {
		return nil
	}
	return &AssertionError{
		Type:     AssertCompiles,
		Expected: "compilation succeeds",
		Actual:   result.Err.Error(),
	}
}

func assertOutputEquals(result *Result, a Assertion) error {
	if err := assertCompiles(result); err != nil {
		return err
	}
	expected, err := doc.FromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	if doc.Equal(expected, result.Output) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutputEquals,
		Expected: doc.Fragment(expected),
		Actual:   doc.Fragment(result.Output),
	}
}

func assertOutputAt(result *Result, a Assertion) error {
	if err := assertCompiles(result); err != nil {
		return err
	}
	path, err := toPath(a.Path)
	if err != nil {
		return err
	}
	expected, err := doc.FromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}

	actual, ok := doc.Get(result.Output, path)
	if !ok {
		return &AssertionError{
			Type:     AssertOutputAt,
			Expected: fmt.Sprintf("%s at %s", doc.Fragment(expected), path),
			Actual:   "path not found",
		}
	}
	if doc.Equal(expected, actual) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutputAt,
		Expected: fmt.Sprintf("%s at %s", doc.Fragment(expected), path),
		Actual:   doc.Fragment(actual),
	}
}

// compileError extracts the coded error from result, if there is one.
func compileError(result *Result) (*compiler.Error, error) {
	if result.Err == nil {
		return nil, &AssertionError{
			Type:     "error",
			Expected: "compilation fails",
			Actual:   "compilation succeeded",
		}
	}
	var compileErr *compiler.Error
	if !errors.As(result.Err, &compileErr) {
		return nil, &AssertionError{
			Type:     "error",
			Expected: "a coded compile error",
			Actual:   result.Err.Error(),
		}
	}
	return compileErr, nil
}

func assertErrorCode(result *Result, a Assertion) error {
	compileErr, err := compileError(result)
	if err != nil {
		return err
	}
	if compileErr.Code == a.Code {
		return nil
	}
	return &AssertionError{
		Type:     AssertErrorCode,
		Expected: a.Code,
		Actual:   compileErr.Error(),
	}
}

func assertErrorKind(result *Result, a Assertion) error {
	compileErr, err := compileError(result)
	if err != nil {
		return err
	}
	if string(compileErr.Kind) == a.Kind {
		return nil
	}
	return &AssertionError{
		Type:     AssertErrorKind,
		Expected: a.Kind,
		Actual:   string(compileErr.Kind),
	}
}

func assertJoinCount(result *Result, a Assertion) error {
	if err := assertCompiles(result); err != nil {
		return err
	}
	if got := result.Report.Joins(); got != a.Count {
		return &AssertionError{
			Type:     AssertJoinCount,
			Expected: fmt.Sprintf("%d join(s)", a.Count),
			Actual:   fmt.Sprintf("%d join(s)", got),
		}
	}
	return nil
}

func assertNoMarker(result *Result, a Assertion) error {
	if err := assertCompiles(result); err != nil {
		return err
	}
	if occ := doc.Locate(result.Output, a.Marker); len(occ) > 0 {
		return &AssertionError{
			Type:     AssertNoMarker,
			Expected: fmt.Sprintf("no %q key in output", a.Marker),
			Actual:   fmt.Sprintf("found at %s", occ[0].Path),
		}
	}
	return nil
}
