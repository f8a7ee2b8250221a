package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/filterjoin/internal/doc"
	"github.com/roach88/filterjoin/internal/msearch"
)

// Input formats, chosen by file extension.
const (
	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatCUE    = "cue"
	FormatNDJSON = "ndjson"
)

// StdinPath reads a JSON document from standard input.
const StdinPath = "-"

// LoadResult is a loaded query document, or a multi-search body for
// NDJSON input.
type LoadResult struct {
	Path     string
	Format   string
	Document doc.Value        // nil for NDJSON
	Searches []msearch.Search // NDJSON only
}

// Bulk reports whether the input is a multi-search body.
func (r *LoadResult) Bulk() bool {
	return r.Format == FormatNDJSON
}

// Documents returns the query documents to compile: the single document,
// or every search body.
func (r *LoadResult) Documents() []doc.Value {
	if r.Bulk() {
		return msearch.Bodies(r.Searches)
	}
	return []doc.Value{r.Document}
}

// LoadError represents an error that occurred while loading input.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDocument reads the query document at path. "-" reads JSON from stdin.
func LoadDocument(path string, stdin io.Reader) (*LoadResult, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var data []byte
	if path == StdinPath {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading stdin: %v", err)}
		}
	} else {
		data, err = os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("input file not found: %s", path)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
		}
	}

	result := &LoadResult{Path: path, Format: format}
	switch format {
	case FormatNDJSON:
		result.Searches, err = msearch.Parse(data)
	case FormatYAML:
		result.Document, err = parseYAML(data)
	case FormatCUE:
		result.Document, err = parseCUE(path, data)
	default:
		result.Document, err = doc.Parse(data)
	}
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return nil, loadErr
		}
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}
	return result, nil
}

// DetectFormat maps a file extension to an input format.
func DetectFormat(path string) (string, error) {
	if path == StdinPath {
		return FormatJSON, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	case ".ndjson", ".jsonl":
		return FormatNDJSON, nil
	default:
		return "", &LoadError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("unsupported input format %q (want .json, .yaml, .yml, .cue or .ndjson)", filepath.Ext(path)),
		}
	}
}

func parseYAML(data []byte) (doc.Value, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return doc.FromAny(raw)
}

// parseCUE evaluates a single CUE file and exports it as JSON. The file
// must evaluate to a concrete value.
func parseCUE(path string, data []byte) (doc.Value, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "building CUE value", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "CUE value is not concrete", err)
	}

	exported, err := value.MarshalJSON()
	if err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "exporting CUE value", err)
	}
	return doc.Parse(exported)
}

func cueLoadError(code, context string, err error) *LoadError {
	loadErr := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", context, err)}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}

// loadErrorCode returns the code of a LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// Error code constants for CLI failures that are not compile errors.
// Compile errors keep their own E2xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // Input could not be read
	ErrCodeUnsupported = "E003" // Unknown input extension
	ErrCodeParseFailed = "E004" // Input is not valid JSON/YAML/NDJSON
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStoreFailed = "E008" // Translation store error
)
