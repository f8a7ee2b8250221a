package compiler

import "github.com/roach88/filterjoin/internal/joinspec"

// Error is a compile failure of a join specification. It carries an Exxx
// code, a Kind, and the path of the marker occurrence.
type Error = joinspec.Error

// Kind classifies an Error.
type Kind = joinspec.Kind

const (
	KindStructure = joinspec.KindStructure
	KindReference = joinspec.KindReference
	KindPlacement = joinspec.KindPlacement
)

// Sentinels for errors.Is.
var (
	ErrStructure = joinspec.ErrStructure
	ErrReference = joinspec.ErrReference
	ErrPlacement = joinspec.ErrPlacement
)
