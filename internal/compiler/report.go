package compiler

import (
	"github.com/roach88/filterjoin/internal/doc"
)

// Report describes what a compile call produced, one entry per marker
// occurrence in document order.
type Report struct {
	Occurrences []OccurrenceReport `json:"occurrences"`
}

// OccurrenceReport lists the joins compiled for one marker occurrence.
type OccurrenceReport struct {
	Marker string       `json:"marker"`
	Path   doc.Path     `json:"-"`
	Joins  []JoinRecord `json:"joins"`
}

// JoinRecord is one filter-join clause. Depth 0 is a clause in the list
// that replaced the marker; each nesting level adds one.
type JoinRecord struct {
	Depth      int      `json:"depth"`
	SourcePath string   `json:"source_path"`
	TargetPath string   `json:"target_path"`
	Indices    []string `json:"indices,omitempty"`
	Negate     bool     `json:"negate,omitempty"`
}

// Joins returns the total number of clauses across all occurrences.
func (r *Report) Joins() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, occ := range r.Occurrences {
		n += len(occ.Joins)
	}
	return n
}

// merge appends other's occurrences to r.
func (r *Report) merge(other *Report) {
	if other == nil {
		return
	}
	r.Occurrences = append(r.Occurrences, other.Occurrences...)
}

// indexNames flattens an indices value for display. String elements are
// kept; anything else is rendered as JSON.
func indexNames(v doc.Value) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case doc.String:
		return []string{string(t)}
	case doc.Array:
		out := make([]string, len(t))
		for i, elem := range t {
			if s, ok := elem.(doc.String); ok {
				out[i] = string(s)
			} else {
				out[i] = doc.Fragment(elem)
			}
		}
		return out
	default:
		return []string{doc.Fragment(v)}
	}
}
