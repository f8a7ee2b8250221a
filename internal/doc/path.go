package doc

import (
	"fmt"
	"strconv"
	"strings"
)

// Step addresses one level of a document: an object key or an array index.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns an object key step.
func Key(k string) Step { return Step{Key: k} }

// Index returns an array index step.
func Index(i int) Step { return Step{Index: i, IsIndex: true} }

func (s Step) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return strconv.Quote(s.Key)
}

// Path is an ordered list of steps from the document root.
// Paths are values: Append never aliases the receiver's backing array.
type Path []Step

// Append returns a new path with s added at the end.
func (p Path) Append(s Step) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// Parent returns the path without its last step.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final step. It panics on an empty path.
func (p Path) Last() Step {
	return p[len(p)-1]
}

// String renders the path as a JSON array, e.g. ["query","bool","must",0,"join"].
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Occurrence is a located marker key together with the value under it.
type Occurrence struct {
	Path  Path
	Value Value
}

// Locate returns every occurrence of key anywhere in the tree, depth first.
// Object keys are visited in canonical order and array elements in index
// order, so the result is deterministic for a fixed tree. The value under a
// located key is not searched further.
func Locate(root Value, key string) []Occurrence {
	var out []Occurrence
	locate(root, key, nil, &out)
	return out
}

func locate(v Value, key string, path Path, out *[]Occurrence) {
	switch val := v.(type) {
	case Object:
		for _, k := range val.SortedKeys() {
			child := path.Append(Key(k))
			if k == key {
				*out = append(*out, Occurrence{Path: child, Value: val[k]})
				continue
			}
			locate(val[k], key, child, out)
		}
	case Array:
		for i, elem := range val {
			locate(elem, key, path.Append(Index(i)), out)
		}
	}
}

// Get returns the value at path.
func Get(root Value, path Path) (Value, bool) {
	cur := root
	for _, s := range path {
		switch val := cur.(type) {
		case Object:
			if s.IsIndex {
				return nil, false
			}
			next, ok := val[s.Key]
			if !ok {
				return nil, false
			}
			cur = next
		case Array:
			if !s.IsIndex || s.Index < 0 || s.Index >= len(val) {
				return nil, false
			}
			cur = val[s.Index]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Replace returns a copy of root where the value at path is newValue.
// Only the containers along the path are copied; root is never mutated.
// The path must already exist.
func Replace(root Value, path Path, newValue Value) (Value, error) {
	if len(path) == 0 {
		return newValue, nil
	}

	head := path[0]
	switch val := root.(type) {
	case Object:
		if head.IsIndex {
			return nil, fmt.Errorf("replace %s: expected an array, found an object", path)
		}
		child, ok := val[head.Key]
		if !ok {
			return nil, fmt.Errorf("replace %s: key not found", path)
		}
		replaced, err := Replace(child, path[1:], newValue)
		if err != nil {
			return nil, err
		}
		out := make(Object, len(val))
		for k, v := range val {
			out[k] = v
		}
		out[head.Key] = replaced
		return out, nil
	case Array:
		if !head.IsIndex || head.Index < 0 || head.Index >= len(val) {
			return nil, fmt.Errorf("replace %s: index out of range", path)
		}
		replaced, err := Replace(val[head.Index], path[1:], newValue)
		if err != nil {
			return nil, err
		}
		out := make(Array, len(val))
		copy(out, val)
		out[head.Index] = replaced
		return out, nil
	default:
		return nil, fmt.Errorf("replace %s: cannot descend into %s", path, TypeName(root))
	}
}
