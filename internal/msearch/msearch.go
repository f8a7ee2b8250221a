// Package msearch reads and writes multi-search request bodies: newline
// delimited JSON where each search is a header line followed by a body line.
package msearch

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/roach88/filterjoin/internal/doc"
)

// ErrUnpaired is returned when a body has a header without a search body.
var ErrUnpaired = errors.New("multi-search body must alternate header and body lines")

// Search is one header/body pair of a multi-search request.
type Search struct {
	Header doc.Value
	Body   doc.Value
}

// Parse splits a multi-search body into searches. Blank lines are ignored.
func Parse(data []byte) ([]Search, error) {
	values, err := doc.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse multi-search body: %w", err)
	}
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("parse multi-search body: %w (got %d lines)", ErrUnpaired, len(values))
	}

	searches := make([]Search, 0, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		searches = append(searches, Search{Header: values[i], Body: values[i+1]})
	}
	return searches, nil
}

// Encode writes searches back as newline-delimited JSON, one compact line
// per value, with a trailing newline.
func Encode(searches []Search) ([]byte, error) {
	var buf bytes.Buffer
	for i, s := range searches {
		for _, v := range []doc.Value{s.Header, s.Body} {
			line, err := doc.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode search %d: %w", i, err)
			}
			buf.Write(line)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

// Map applies fn to every search body and returns the rewritten searches.
// Headers are passed through. The first error stops the walk and names the
// search it came from.
func Map(searches []Search, fn func(doc.Value) (doc.Value, error)) ([]Search, error) {
	out := make([]Search, len(searches))
	for i, s := range searches {
		body, err := fn(s.Body)
		if err != nil {
			return nil, fmt.Errorf("search %d: %w", i, err)
		}
		out[i] = Search{Header: s.Header, Body: body}
	}
	return out, nil
}

// Bodies returns the body of every search.
func Bodies(searches []Search) []doc.Value {
	out := make([]doc.Value, len(searches))
	for i, s := range searches {
		out[i] = s.Body
	}
	return out
}
