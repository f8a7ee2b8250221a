package joinspec

import (
	"github.com/roach88/filterjoin/internal/doc"
)

// Step is one element of a join sequence.
//
// This is a sealed interface - only *RelationStep and *GroupStep implement it.
// Element kinds are decided once, at parse time, so the compiler can switch
// exhaustively instead of probing fields.
type Step interface {
	step() // Marker method - seals interface to this package
}

// Sequence is an ordered list of join steps.
// Only the first element may be a *GroupStep.
type Sequence []Step

// RelationStep joins Relation[1] into Relation[0]: the produced clause is
// keyed by Relation[1].Path and targets the indices of Relation[0].
type RelationStep struct {
	Relation [2]Endpoint
	Negate   bool
}

func (*RelationStep) step() {}

// GroupStep nests several sequences under the clause built so far.
type GroupStep struct {
	Group  []Sequence
	Negate bool
}

func (*GroupStep) step() {}

// Endpoint is one side of a join relation.
// Optional fields are nil when absent and are carried as raw document values.
type Endpoint struct {
	Path             string
	Indices          doc.Value
	Types            doc.Value
	OrderBy          doc.Value
	MaxTermsPerShard doc.Value
	Queries          []doc.Value
}

// endpointFields is the closed set of keys an endpoint may carry.
var endpointFields = map[string]bool{
	"queries":          true,
	"path":             true,
	"indices":          true,
	"types":            true,
	"orderBy":          true,
	"maxTermsPerShard": true,
}

// ParseSequence validates a raw join_sequence value and converts it into a
// typed Sequence. Validation recurses into groups and completes before any
// compilation starts.
func ParseSequence(v doc.Value) (Sequence, error) {
	arr, ok := v.(doc.Array)
	if !ok {
		return nil, structural(ErrCodeSequenceShape,
			"The join sequence must be an array. Got: %s", doc.Fragment(v))
	}
	if len(arr) == 0 {
		return nil, structural(ErrCodeSequenceShape,
			"Specify the join sequence: %s", doc.Fragment(v))
	}

	seq := make(Sequence, len(arr))
	for i, raw := range arr {
		element, _ := raw.(doc.Object)
		switch {
		case element != nil && doc.Truthy(element["group"]):
			if i != 0 {
				return nil, structural(ErrCodeGroupPlacement,
					"There can be only one sequence object and it must be the first element of the array (found one at position %d)", i)
			}
			if len(arr) < 2 {
				return nil, structural(ErrCodeGroupPlacement,
					"Missing elements! only got: %s", doc.Fragment(v))
			}
			group, err := parseGroup(element)
			if err != nil {
				return nil, err
			}
			seq[i] = group

		case element != nil && doc.Truthy(element["relation"]):
			rel, err := parseRelation(element)
			if err != nil {
				return nil, err
			}
			seq[i] = rel

		default:
			return nil, structural(ErrCodeUnknownElement,
				"Unknown element: %s", doc.Fragment(raw))
		}
	}
	return seq, nil
}

func parseGroup(element doc.Object) (*GroupStep, error) {
	nested, ok := element["group"].(doc.Array)
	if !ok {
		return nil, structural(ErrCodeGroupPlacement,
			"The group must be an array of join sequences. Got: %s", doc.Fragment(element["group"]))
	}

	group := &GroupStep{
		Group:  make([]Sequence, len(nested)),
		Negate: doc.Truthy(element["negate"]),
	}
	for i, raw := range nested {
		seq, err := ParseSequence(raw)
		if err != nil {
			return nil, err
		}
		group.Group[i] = seq
	}
	return group, nil
}

func parseRelation(element doc.Object) (*RelationStep, error) {
	pair, ok := element["relation"].(doc.Array)
	if !ok || len(pair) != 2 {
		return nil, structural(ErrCodeRelationArity,
			"Expecting a pair of dashboards to join, got: %s", doc.Fragment(element["relation"]))
	}

	rel := &RelationStep{Negate: doc.Truthy(element["negate"])}
	for i, raw := range pair {
		// The endpoint at index 1 supplies the join values to the level
		// above, so its queries must already be applied.
		ep, err := parseEndpoint(raw, pair, i == 1)
		if err != nil {
			return nil, err
		}
		rel.Relation[i] = ep
	}
	return rel, nil
}

func parseEndpoint(raw doc.Value, pair doc.Array, isSource bool) (Endpoint, error) {
	obj, ok := raw.(doc.Object)
	if !ok {
		return Endpoint{}, structural(ErrCodeFieldType,
			"Each side of a relation must be an object, got: %s in %s", doc.Fragment(raw), doc.Fragment(pair))
	}

	if !obj.Has("path") {
		return Endpoint{}, structural(ErrCodeMissingPath,
			"The join path is required: %s", doc.Fragment(pair))
	}

	for _, key := range obj.SortedKeys() {
		if isSource && key == "queries" {
			return Endpoint{}, structural(ErrCodeRootQueries,
				"Queries for the root node should be already set: %s", doc.Fragment(pair))
		}
		if !endpointFields[key] {
			return Endpoint{}, structural(ErrCodeUnknownField,
				"Got unknown field [%s] in %s", key, doc.Fragment(obj))
		}
	}

	path, ok := obj["path"].(doc.String)
	if !ok || path == "" {
		return Endpoint{}, structural(ErrCodeFieldType,
			"The join path must be a non-empty string, got: %s in %s", doc.Fragment(obj["path"]), doc.Fragment(pair))
	}

	ep := Endpoint{
		Path:             string(path),
		Indices:          obj["indices"],
		Types:            obj["types"],
		OrderBy:          obj["orderBy"],
		MaxTermsPerShard: obj["maxTermsPerShard"],
	}

	queries, err := entryList(obj["queries"], "queries")
	if err != nil {
		return Endpoint{}, err
	}
	ep.Queries = queries
	return ep, nil
}

// entryList reads an optional list of filter or query entries.
// Absent or null yields nil; anything other than an array is an error.
func entryList(v doc.Value, field string) ([]doc.Value, error) {
	switch val := v.(type) {
	case nil, doc.Null:
		return nil, nil
	case doc.Array:
		return []doc.Value(val), nil
	default:
		return nil, structural(ErrCodeFieldType,
			"The %s field must be an array, got: %s", field, doc.Fragment(v))
	}
}
