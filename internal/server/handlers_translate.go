package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/roach88/filterjoin/internal/compiler"
	"github.com/roach88/filterjoin/internal/doc"
	"github.com/roach88/filterjoin/internal/msearch"
	"github.com/roach88/filterjoin/internal/store"
)

// requestError is a client error that is not a compile error.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(message string) error {
	return &requestError{status: http.StatusBadRequest, message: message}
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, "", "", "request body too large")
			return
		}
		jsonError(w, http.StatusBadRequest, "", "", "failed to read body: "+err.Error())
		return
	}

	body, err := doc.Parse(data)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "", "", "invalid JSON body: "+err.Error())
		return
	}

	queries, joins, err := s.translate(body)

	tr, recErr := store.NewTranslation(string(compiler.ModeAll), body, doc.Array(queries), joins, err)
	if recErr != nil {
		s.log.Error("failed to build translation record", "error", recErr)
	} else {
		s.record(r, tr)
	}

	if err != nil {
		s.writeTranslateError(w, err)
		return
	}

	var first doc.Value = doc.Null{}
	if len(queries) > 0 {
		first = queries[0]
	}
	writeJSON(w, http.StatusOK, doc.Object{
		"translatedQuery":   first,
		"translatedQueries": doc.Array(queries),
		"id":                doc.String(tr.ID),
	})
}

// translate runs the compiler over a single query or over every body of a
// multi-search request.
func (s *Server) translate(body doc.Value) ([]doc.Value, int, error) {
	obj, ok := body.(doc.Object)
	if !ok {
		return nil, 0, badRequest("Expected a JSON object with a query or bulkQuery field")
	}

	switch {
	case doc.Truthy(obj["query"]):
		query, ok := obj["query"].(doc.Object)
		if !ok {
			return nil, 0, badRequest("Expected query to be a JSON object containing single query")
		}
		out, report, err := s.compiler.Compile(compiler.ModeAll, query)
		if err != nil {
			return nil, 0, err
		}
		return []doc.Value{out}, report.Joins(), nil

	case doc.Truthy(obj["bulkQuery"]):
		bulk, ok := obj["bulkQuery"].(doc.String)
		if !ok {
			return nil, 0, badRequest("Expected bulkQuery to be a String containing a bulk elasticsearch query")
		}
		searches, err := msearch.Parse([]byte(bulk))
		if err != nil {
			return nil, 0, badRequest(err.Error())
		}
		joins := 0
		translated, err := msearch.Map(searches, func(v doc.Value) (doc.Value, error) {
			out, report, err := s.compiler.Compile(compiler.ModeAll, v)
			if err != nil {
				return nil, err
			}
			joins += report.Joins()
			return out, nil
		})
		if err != nil {
			return nil, 0, err
		}
		return msearch.Bodies(translated), joins, nil

	default:
		return nil, 0, badRequest("Expected a query or bulkQuery field")
	}
}

func (s *Server) record(r *http.Request, tr store.Translation) {
	if s.recorder == nil {
		return
	}
	if _, err := s.recorder.Record(r.Context(), tr); err != nil {
		s.log.Error("failed to record translation", "id", tr.ID, "error", err)
	}
}

func (s *Server) writeTranslateError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		jsonError(w, reqErr.status, "", "", reqErr.message)
		return
	}

	var compileErr *compiler.Error
	if errors.As(err, &compileErr) {
		jsonError(w, http.StatusBadRequest, compileErr.Code, string(compileErr.Kind), err.Error())
		return
	}

	s.log.Error("translate failed", "error", err)
	jsonError(w, http.StatusInternalServerError, "", "", err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v doc.Value) {
	data, err := doc.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":{"message":"failed to encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	w.Write([]byte("\n"))
}

func jsonError(w http.ResponseWriter, status int, code, kind, msg string) {
	body := doc.Object{"message": doc.String(msg)}
	if code != "" {
		body["code"] = doc.String(code)
	}
	if kind != "" {
		body["kind"] = doc.String(kind)
	}
	writeJSON(w, status, doc.Object{"error": body})
}
