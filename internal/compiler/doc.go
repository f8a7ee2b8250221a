// Package compiler turns join markers embedded in a search query document
// into nested filterjoin clauses.
//
// Two markers are recognised:
//
//	{"join_sequence": [...]}  an explicit ordered sequence of joins
//	{"join": {...}}           a relation graph rooted at a focus index
//
// Every occurrence of a marker, at any depth, is compiled and its value is
// replaced by the list of filterjoin clauses it produces. The object holding
// a marker must hold nothing else.
//
// Compilation never modifies its input. All occurrences are compiled before
// anything is spliced, so a failing occurrence leaves no partial result.
//
// Usage:
//
//	c := compiler.New(compiler.WithDuplicateEdges(compiler.DuplicateEdgesReject))
//	out, report, err := c.Translate(query)
package compiler
