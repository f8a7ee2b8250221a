package joinspec

import (
	"errors"
	"fmt"

	"github.com/roach88/filterjoin/internal/doc"
)

// Error codes (E200-E299)
const (
	// Sequence errors (E201-E209)
	ErrCodeSequenceShape  = "E201" // sequence is not a non-empty array
	ErrCodeGroupPlacement = "E202" // group not first, or sequence too short
	ErrCodeRelationArity  = "E203" // relation is not a pair
	ErrCodeMissingPath    = "E204" // endpoint without path
	ErrCodeRootQueries    = "E205" // queries on endpoint 1
	ErrCodeUnknownField   = "E206" // unknown endpoint field
	ErrCodeUnknownElement = "E207" // neither group nor relation
	ErrCodeFieldType      = "E208" // field has the wrong JSON type

	// Graph errors (E210-E219)
	ErrCodeMissingField  = "E210" // focus, indexes or relations absent
	ErrCodeEdgeArity     = "E211" // relation entry is not a pair
	ErrCodeMissingDot    = "E212" // relation endpoint without index.path
	ErrCodeDuplicateEdge = "E213" // same index pair joined twice

	// Reference errors (E220-E229)
	ErrCodeUnknownIndex = "E220" // index id not in indexes

	// Placement errors (E230-E239)
	ErrCodeMarkerSiblings = "E230" // marker shares its object with other keys
	ErrCodeRootFilters    = "E231" // filters attached to the root list
)

// Kind classifies an Error for callers that only care about the category.
type Kind string

const (
	KindStructure Kind = "structure"
	KindReference Kind = "reference"
	KindPlacement Kind = "placement"
)

// Sentinel errors matched with errors.Is against any *Error of that kind.
var (
	ErrStructure = errors.New("malformed join specification")
	ErrReference = errors.New("unresolved index reference")
	ErrPlacement = errors.New("illegal placement")
)

// Error is a compile-time failure of a join specification.
// Path is the location of the marker occurrence when known.
type Error struct {
	Code    string   `json:"code"`
	Kind    Kind     `json:"kind"`
	Path    doc.Path `json:"-"`
	Message string   `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the kind sentinel so errors.Is works on categories.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindReference:
		return ErrReference
	case KindPlacement:
		return ErrPlacement
	default:
		return ErrStructure
	}
}

// structural builds a KindStructure error.
func structural(code, format string, args ...any) *Error {
	return &Error{Code: code, Kind: KindStructure, Message: fmt.Sprintf(format, args...)}
}

// NewError builds an error of the given kind.
func NewError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Code: code, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AtPath returns err with Path set when err is an *Error without a path.
func AtPath(err error, path doc.Path) error {
	var specErr *Error
	if errors.As(err, &specErr) && len(specErr.Path) == 0 {
		cp := *specErr
		cp.Path = path
		return &cp
	}
	return err
}
