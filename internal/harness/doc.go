// Package harness runs conformance scenarios against the join compiler.
//
// A scenario is a YAML file naming an input document, a compile mode and a
// list of assertions about the result:
//
//	name: graph_with_filters
//	description: "Filters on a non-focus index land in the nested clause"
//	mode: graph
//	input_file: inputs/graph_filters.json
//	assertions:
//	  - type: join_count
//	    count: 2
//	  - type: no_marker
//	    marker: join_sequence
//	  - type: output_at
//	    path: [join, 0, filterjoin, aid, indices]
//	    expect: [b]
//
// The input may also be given inline under input:. Relative input_file
// paths are resolved against the scenario's directory.
//
// # Assertion Types
//
//   - compiles: compilation succeeded
//   - output_equals: the whole output document equals expect
//   - output_at: the value at path equals expect
//   - error_code: compilation failed with the given Exxx code
//   - error_kind: compilation failed with the given kind
//   - join_count: the report lists exactly count joins
//   - no_marker: the output contains no occurrence of marker
//
// A compile error fails the scenario unless it carries an error_code or
// error_kind assertion.
//
// # Golden Files
//
// Snapshot renders a result as indented JSON. The test command compares it
// against golden/<scenario file name>.golden next to the scenario and
// rewrites it with --update.
package harness
