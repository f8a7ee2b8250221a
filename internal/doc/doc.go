// Package doc provides the document model the join compiler reads and writes.
//
// A document is a JSON-compatible tree expressed as a sealed sum type:
// Object, Array, String, Number, Bool and Null. Numbers keep their literal
// text so values pass through compilation byte for byte.
//
// The package also holds the tree primitives the compiler builds on:
//   - Locate finds every occurrence of a marker key, depth first
//   - Get and Replace address values by Path
//   - Replace copies the containers along the path, leaving the input intact
//
// This package imports nothing internal.
package doc
