package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/filterjoin/internal/doc"
	"github.com/roach88/filterjoin/internal/joinspec"
)

// Translation is one recorded compile call.
type Translation struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	Mode         string `json:"mode"`
	InputHash    string `json:"input_hash"`
	Input        string `json:"input"`
	Output       string `json:"output,omitempty"`
	Joins        int    `json:"joins"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Failed reports whether the translation ended in an error.
func (t Translation) Failed() bool {
	return t.ErrorMessage != ""
}

// NewTranslation builds a record for a compile of input in the given mode.
// Pass the output on success or compileErr on failure. Seq is assigned when
// the record is written.
func NewTranslation(mode string, input, output doc.Value, joins int, compileErr error) (Translation, error) {
	hash, err := doc.ContentHash(doc.DomainTranslationInput, input)
	if err != nil {
		return Translation{}, fmt.Errorf("hash input: %w", err)
	}
	inputJSON, err := marshalDocument(input)
	if err != nil {
		return Translation{}, fmt.Errorf("marshal input: %w", err)
	}

	t := Translation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Mode:      mode,
		InputHash: hash,
		Input:     inputJSON,
		Joins:     joins,
	}

	if compileErr != nil {
		t.Joins = 0
		t.ErrorMessage = compileErr.Error()
		var specErr *joinspec.Error
		if errors.As(compileErr, &specErr) {
			t.ErrorCode = specErr.Code
		}
		return t, nil
	}

	t.Output, err = marshalDocument(output)
	if err != nil {
		return Translation{}, fmt.Errorf("marshal output: %w", err)
	}
	return t, nil
}

// marshalDocument converts a document to canonical JSON TEXT for storage.
func marshalDocument(v doc.Value) (string, error) {
	data, err := doc.MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
