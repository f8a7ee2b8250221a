package doc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// Parse decodes a single JSON document.
// Numbers are kept as literal text; trailing data after the document is an error.
func Parse(data []byte) (Value, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads exactly one JSON document from r.
func Decode(r io.Reader) (Value, error) {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode document: unexpected data after the top-level value")
	}

	return FromAny(raw)
}

// DecodeAll reads a stream of concatenated JSON documents, such as
// newline-delimited JSON, until EOF. Whitespace between documents is ignored.
func DecodeAll(r io.Reader) ([]Value, error) {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()

	var out []Value
	for {
		var raw any
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", len(out), err)
		}
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", len(out), err)
		}
		out = append(out, v)
	}
}

// MustParse is like Parse but panics on error.
// Use only in tests or with literal input.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

// FromAny converts a generic Go value, as produced by JSON, YAML or CUE
// decoders, into a document Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return Number(val.String()), nil
	case int:
		return Number(strconv.Itoa(val)), nil
	case int64:
		return Number(strconv.FormatInt(val, 10)), nil
	case uint64:
		return Number(strconv.FormatUint(val, 10)), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("number out of JSON range: %v", val)
		}
		return Number(strconv.FormatFloat(val, 'g', -1, 64)), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			docElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = docElem
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			docElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = docElem
		}
		return obj, nil
	case map[any]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v: keys must be strings", k)
			}
			docElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			obj[key] = docElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// Indent marshals v and indents the result for human consumption.
func Indent(v Value) ([]byte, error) {
	compact, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gojson.Indent(&buf, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("indent document: %w", err)
	}
	return buf.Bytes(), nil
}

// Fragment renders v as compact JSON for inclusion in error messages.
func Fragment(v Value) string {
	data, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%s>", TypeName(v))
	}
	return string(data)
}
