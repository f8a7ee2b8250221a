package joinspec

import (
	"strings"

	"github.com/roach88/filterjoin/internal/doc"
)

// Graph is a relation graph rooted at a focus index.
type Graph struct {
	Focus     string
	Relations []Edge
	// Filters maps an index name to its filter entries.
	// A key whose value is null is kept with a nil slice.
	Filters map[string][]doc.Value
	Indexes []IndexDescriptor
}

// Edge is an undirected join between two index fields.
type Edge [2]EdgeEnd

// EdgeEnd is one "index.path" endpoint of an edge.
type EdgeEnd struct {
	Raw   string // the original "index.path" string
	Index string // text before the first dot
	Path  string // text after the first dot
}

// Touches reports whether the endpoint belongs to index.
// Matching is a prefix test on "index." to cope with dotted index names.
func (e EdgeEnd) Touches(index string) bool {
	return strings.HasPrefix(e.Raw, index+".")
}

// Focused returns the position of the first endpoint belonging to index,
// or -1 when the edge does not touch it.
func (e Edge) Focused(index string) int {
	for i, end := range e {
		if end.Touches(index) {
			return i
		}
	}
	return -1
}

// IndexDescriptor describes an index reachable from the focus.
type IndexDescriptor struct {
	ID               string
	Type             string
	OrderBy          doc.Value
	MaxTermsPerShard doc.Value
}

// Lookup returns the first descriptor with the given id.
func (g *Graph) Lookup(id string) (IndexDescriptor, bool) {
	for _, d := range g.Indexes {
		if d.ID == id {
			return d, true
		}
	}
	return IndexDescriptor{}, false
}

// ParseGraph validates a raw join value and converts it into a typed Graph.
// Every relation is checked up front, including ones the traversal may never
// reach, so a malformed graph fails before anything is built.
func ParseGraph(v doc.Value) (*Graph, error) {
	obj, ok := v.(doc.Object)
	if !ok {
		return nil, structural(ErrCodeMissingField,
			"The join object must be an object: %s", doc.Fragment(v))
	}

	for _, field := range []string{"focus", "indexes", "relations"} {
		if val, ok := obj[field]; !ok || val == (doc.Null{}) {
			return nil, structural(ErrCodeMissingField,
				"Missing %s field in the join object: %s", field, doc.Fragment(v))
		}
	}

	focus, ok := obj["focus"].(doc.String)
	if !ok || focus == "" {
		return nil, structural(ErrCodeFieldType,
			"The focus must be a non-empty string, got: %s", doc.Fragment(obj["focus"]))
	}

	g := &Graph{Focus: string(focus)}

	relations, err := parseEdges(obj["relations"])
	if err != nil {
		return nil, err
	}
	g.Relations = relations

	indexes, err := parseIndexes(obj["indexes"])
	if err != nil {
		return nil, err
	}
	g.Indexes = indexes

	filters, err := parseFilters(obj["filters"])
	if err != nil {
		return nil, err
	}
	g.Filters = filters

	return g, nil
}

func parseEdges(v doc.Value) ([]Edge, error) {
	arr, ok := v.(doc.Array)
	if !ok {
		return nil, structural(ErrCodeFieldType,
			"The relations field must be an array, got: %s", doc.Fragment(v))
	}

	edges := make([]Edge, len(arr))
	for i, raw := range arr {
		pair, ok := raw.(doc.Array)
		if !ok || len(pair) != 2 {
			return nil, structural(ErrCodeEdgeArity,
				"Expected relation entry with 2 elements: got %s", doc.Fragment(raw))
		}
		for j, end := range pair {
			s, ok := end.(doc.String)
			if !ok {
				return nil, structural(ErrCodeMissingDot,
					"Expected an index.path string in relation %s, got: %s", doc.Fragment(raw), doc.Fragment(end))
			}
			index, path, found := strings.Cut(string(s), ".")
			if !found {
				return nil, structural(ErrCodeMissingDot, "Missing dot in [%s]", string(s))
			}
			edges[i][j] = EdgeEnd{Raw: string(s), Index: index, Path: path}
		}
	}
	return edges, nil
}

func parseIndexes(v doc.Value) ([]IndexDescriptor, error) {
	arr, ok := v.(doc.Array)
	if !ok {
		return nil, structural(ErrCodeFieldType,
			"The indexes field must be an array, got: %s", doc.Fragment(v))
	}

	out := make([]IndexDescriptor, 0, len(arr))
	for _, raw := range arr {
		obj, ok := raw.(doc.Object)
		if !ok {
			return nil, structural(ErrCodeFieldType,
				"Each index must be an object with an id, got: %s", doc.Fragment(raw))
		}
		id, ok := obj["id"].(doc.String)
		if !ok || id == "" {
			return nil, structural(ErrCodeFieldType,
				"The index id must be a non-empty string, got: %s", doc.Fragment(raw))
		}

		desc := IndexDescriptor{
			ID:               string(id),
			OrderBy:          obj["orderBy"],
			MaxTermsPerShard: obj["maxTermsPerShard"],
		}
		switch typ := obj["type"].(type) {
		case nil, doc.Null:
		case doc.String:
			desc.Type = string(typ)
		default:
			return nil, structural(ErrCodeFieldType,
				"The index type must be a string, got: %s", doc.Fragment(raw))
		}
		out = append(out, desc)
	}
	return out, nil
}

func parseFilters(v doc.Value) (map[string][]doc.Value, error) {
	filters := make(map[string][]doc.Value)

	switch val := v.(type) {
	case nil, doc.Null:
		return filters, nil
	case doc.Object:
		for _, index := range val.SortedKeys() {
			entries, err := entryList(val[index], "filters."+index)
			if err != nil {
				return nil, err
			}
			filters[index] = entries
		}
		return filters, nil
	default:
		return nil, structural(ErrCodeFieldType,
			"The filters field must be an object, got: %s", doc.Fragment(v))
	}
}
