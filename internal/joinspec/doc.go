// Package joinspec holds the typed forms of the two join specifications the
// compiler understands, and the structural validation that produces them.
//
// A join_sequence marker carries a Sequence: an ordered list of steps where
// each step is either a *RelationStep (a directed pair of endpoints) or a
// *GroupStep (a list of nested sequences, only legal as the first element).
//
// A join marker carries a Graph: a focus index, an undirected edge list of
// "index.path" pairs, per-index filters and index descriptors.
//
// Parsing and validation are one pass: ParseSequence and ParseGraph either
// return a fully valid typed value or an *Error. Error codes are in the
// E200-E299 range; every error carries a Kind (structure, reference,
// placement) that errors.Is can match through the ErrStructure, ErrReference
// and ErrPlacement sentinels.
package joinspec
