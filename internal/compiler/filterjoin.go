package compiler

import (
	"github.com/roach88/filterjoin/internal/doc"
	"github.com/roach88/filterjoin/internal/joinspec"
)

// node is anything that can sit in a boolean filter list: a compiled
// filter-join clause or a raw filter entry copied from the input.
type node interface {
	value() doc.Value
}

// rawEntry is a user-supplied filter kept verbatim.
type rawEntry struct {
	v doc.Value
}

func (r rawEntry) value() doc.Value { return r.v }

// position is a place a filter-join clause can be attached to.
//
// A *list is either the top-level result of an occurrence or a branch of a
// group; clauses are appended to it directly and negation does not apply.
// A *Filtered is the inner query of a clause; negated clauses go under its
// must_not branch.
type position interface {
	attach(c *Clause, negate bool)
	depth() int
}

// list is an ordered list of filter nodes.
type list struct {
	nodes []node
	level int
}

func (l *list) attach(c *Clause, _ bool) { l.nodes = append(l.nodes, c) }

func (l *list) depth() int { return l.level }

func (l *list) value() doc.Value {
	out := make(doc.Array, len(l.nodes))
	for i, n := range l.nodes {
		out[i] = n.value()
	}
	return out
}

// Clause is a compiled filter-join clause.
//
// SourcePath is the field the clause is keyed by; TargetPath is the join
// field in the indices the clause queries.
type Clause struct {
	SourcePath       string
	TargetPath       string
	Indices          doc.Value
	Types            doc.Value
	OrderBy          doc.Value
	MaxTermsPerShard doc.Value
	Query            *Filtered
}

// Filtered is the filtered query nested in every clause. Scored entries
// contribute to relevance; Must and MustNot are pure filters.
type Filtered struct {
	Scored  []doc.Value
	Must    *list
	MustNot *list // nil until a negated clause or group needs it
	level   int
}

func newClause(sourcePath, targetPath string, target joinTarget, level int) *Clause {
	return &Clause{
		SourcePath:       sourcePath,
		TargetPath:       targetPath,
		Indices:          doc.Clone(target.indices),
		Types:            doc.Clone(target.types),
		OrderBy:          doc.Clone(target.orderBy),
		MaxTermsPerShard: doc.Clone(target.maxTermsPerShard),
		Query:            newFiltered(level + 1),
	}
}

func newFiltered(level int) *Filtered {
	return &Filtered{Must: &list{level: level}, level: level}
}

// joinTarget carries the index settings copied into a clause.
type joinTarget struct {
	indices          doc.Value
	types            doc.Value
	orderBy          doc.Value
	maxTermsPerShard doc.Value
}

func (f *Filtered) attach(c *Clause, negate bool) {
	f.branch(negate).attach(c, false)
}

func (f *Filtered) depth() int { return f.level }

// branch returns the must or must_not filter list, creating must_not on
// first use.
func (f *Filtered) branch(negate bool) *list {
	if !negate {
		return f.Must
	}
	if f.MustNot == nil {
		f.MustNot = &list{level: f.level}
	}
	return f.MustNot
}

func (f *Filtered) value() doc.Value {
	scored := make(doc.Array, 0, len(f.Scored)+1)
	scored = append(scored, doc.Object{"match_all": doc.Object{}})
	scored = append(scored, f.Scored...)

	filter := doc.Object{"must": f.Must.value()}
	if f.MustNot != nil {
		filter["must_not"] = f.MustNot.value()
	}

	return doc.Object{
		"filtered": doc.Object{
			"query":  doc.Object{"bool": doc.Object{"must": scored}},
			"filter": doc.Object{"bool": filter},
		},
	}
}

func (c *Clause) value() doc.Value {
	body := doc.Object{
		"path":  doc.String(c.TargetPath),
		"query": c.Query.value(),
	}
	if c.Indices != nil {
		body["indices"] = c.Indices
	}
	if hasLength(c.Types) {
		body["types"] = c.Types
	}
	if doc.Truthy(c.OrderBy) {
		body["orderBy"] = c.OrderBy
	}
	if doc.Truthy(c.MaxTermsPerShard) {
		body["maxTermsPerShard"] = c.MaxTermsPerShard
	}
	return doc.Object{"filterjoin": doc.Object{c.SourcePath: body}}
}

// hasLength reports whether v is a non-empty array or string.
func hasLength(v doc.Value) bool {
	switch t := v.(type) {
	case doc.Array:
		return len(t) > 0
	case doc.String:
		return len(t) > 0
	default:
		return false
	}
}

// mergeFilters appends filter entries to the clause at pos. Entries with a
// query key are unwrapped into the scored must list; every other entry goes
// to the filter must list as is.
func mergeFilters(pos position, entries []doc.Value) error {
	f, ok := pos.(*Filtered)
	if !ok {
		return joinspec.NewError(joinspec.KindPlacement, joinspec.ErrCodeRootFilters,
			"There cannot be filters on the root of the filterjoin")
	}
	for _, entry := range entries {
		if obj, ok := entry.(doc.Object); ok && obj.Has("query") {
			f.Scored = append(f.Scored, doc.Clone(obj["query"]))
			continue
		}
		f.Must.nodes = append(f.Must.nodes, rawEntry{v: doc.Clone(entry)})
	}
	return nil
}
