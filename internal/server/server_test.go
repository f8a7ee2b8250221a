package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filterjoin/internal/compiler"
	"github.com/roach88/filterjoin/internal/config"
	"github.com/roach88/filterjoin/internal/doc"
	"github.com/roach88/filterjoin/internal/store"
)

type fakeRecorder struct {
	mu    sync.Mutex
	saved []store.Translation
	err   error
}

func (f *fakeRecorder) Record(_ context.Context, t store.Translation) (store.Translation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return store.Translation{}, f.err
	}
	t.Seq = int64(len(f.saved) + 1)
	f.saved = append(f.saved, t)
	return t, nil
}

func newTestServer(t *testing.T, rec Recorder) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(compiler.New(), rec, log, config.Default())
}

func post(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, doc.Object) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	parsed, err := doc.Parse(rec.Body.Bytes())
	require.NoError(t, err, "response: %s", rec.Body.String())
	obj, ok := parsed.(doc.Object)
	require.True(t, ok)
	return rec, obj
}

const sequenceQuery = `{"join_sequence": [{"relation": [{"path": "id", "indices": ["a"]}, {"path": "aid", "indices": ["b"]}]}]}`

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTranslate_SingleQuery(t *testing.T) {
	recorder := &fakeRecorder{}
	s := newTestServer(t, recorder)

	rec, resp := post(t, s, `{"query": `+sequenceQuery+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	translated, ok := resp["translatedQuery"].(doc.Object)
	require.True(t, ok)
	clauses := translated["join_sequence"].(doc.Array)
	require.Len(t, clauses, 1)
	assert.Contains(t, clauses[0].(doc.Object)["filterjoin"].(doc.Object), "aid")

	all := resp["translatedQueries"].(doc.Array)
	require.Len(t, all, 1)
	assert.True(t, doc.Equal(translated, all[0]))

	require.Len(t, recorder.saved, 1)
	assert.Equal(t, string(resp["id"].(doc.String)), recorder.saved[0].ID)
	assert.Equal(t, "all", recorder.saved[0].Mode)
	assert.Equal(t, 1, recorder.saved[0].Joins)
	assert.False(t, recorder.saved[0].Failed())
}

func TestTranslate_GraphThenSequence(t *testing.T) {
	s := newTestServer(t, nil)

	rec, resp := post(t, s, `{"query": {"bool": {"must": [
		{"join": {"focus": "a", "relations": [["a.id", "b.aid"]], "indexes": [{"id": "a"}, {"id": "b"}]}},
		`+sequenceQuery+`
	]}}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	translated := resp["translatedQuery"]
	assert.Empty(t, doc.Locate(translated, "focus"))
	graph, ok := doc.Get(translated, doc.Path{doc.Key("bool"), doc.Key("must"), doc.Index(0), doc.Key("join")})
	require.True(t, ok)
	assert.Len(t, graph.(doc.Array), 1)
}

func TestTranslate_BulkQuery(t *testing.T) {
	recorder := &fakeRecorder{}
	s := newTestServer(t, recorder)

	bulk := `{"index":["a"]}` + "\n" + sequenceQuery + "\n" + `{"index":["c"]}` + "\n" + `{"query":{"match_all":{}}}` + "\n"
	body, err := doc.Marshal(doc.Object{"bulkQuery": doc.String(bulk)})
	require.NoError(t, err)

	rec, resp := post(t, s, string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	all := resp["translatedQueries"].(doc.Array)
	require.Len(t, all, 2)
	assert.True(t, doc.Equal(all[0], resp["translatedQuery"]))
	assert.Equal(t, doc.MustParse(`{"query":{"match_all":{}}}`), all[1])
	assert.Equal(t, 1, recorder.saved[0].Joins)
}

func TestTranslate_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"invalid json", `{"query":`, "invalid JSON body"},
		{"not an object", `[1]`, "query or bulkQuery"},
		{"no fields", `{"size": 1}`, "query or bulkQuery"},
		{"query not object", `{"query": "match_all"}`, "JSON object containing single query"},
		{"bulk not string", `{"bulkQuery": {"a": 1}}`, "String containing a bulk"},
		{"bulk unpaired", `{"bulkQuery": "{\"index\":\"a\"}\n"}`, "alternate header and body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			rec, resp := post(t, s, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			errBody, ok := resp["error"].(doc.Object)
			require.True(t, ok)
			assert.Contains(t, string(errBody["message"].(doc.String)), tt.contains)
			assert.NotContains(t, errBody, "code")
		})
	}
}

func TestTranslate_CompileErrorIs400WithCode(t *testing.T) {
	recorder := &fakeRecorder{}
	s := newTestServer(t, recorder)

	rec, resp := post(t, s, `{"query": {"join": {"focus": "a", "relations": [["a.id", "b.aid"]], "indexes": [{"id": "a"}]}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := resp["error"].(doc.Object)
	assert.Equal(t, doc.String("E220"), errBody["code"])
	assert.Equal(t, doc.String("reference"), errBody["kind"])
	assert.Contains(t, string(errBody["message"].(doc.String)), "Could not find index [b]")

	require.Len(t, recorder.saved, 1)
	assert.Equal(t, "E220", recorder.saved[0].ErrorCode)
}

func TestTranslate_BulkCompileErrorNamesSearch(t *testing.T) {
	s := newTestServer(t, nil)

	bulk := `{}` + "\n" + `{"query":{"join_sequence":[]}}` + "\n"
	body, err := doc.Marshal(doc.Object{"bulkQuery": doc.String(bulk)})
	require.NoError(t, err)

	rec, resp := post(t, s, string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := resp["error"].(doc.Object)
	assert.Equal(t, doc.String("E201"), errBody["code"])
	assert.Contains(t, string(errBody["message"].(doc.String)), "search 0")
}

func TestTranslate_BodyTooLarge(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()
	cfg.MaxBodyBytes = 16
	s := NewServer(compiler.New(), nil, log, cfg)

	rec, resp := post(t, s, `{"query": `+sequenceQuery+`}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, string(resp["error"].(doc.Object)["message"].(doc.String)), "too large")
}

func TestTranslate_RecorderFailureDoesNotFailRequest(t *testing.T) {
	s := newTestServer(t, &fakeRecorder{err: errors.New("disk full")})

	rec, _ := post(t, s, `{"query": `+sequenceQuery+`}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTranslate_RecordsToStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := newTestServer(t, st)
	_, resp := post(t, s, `{"query": `+sequenceQuery+`}`)
	post(t, s, `{"query": {"join_sequence": "bad"}}`)

	latest, err := st.Latest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "E201", latest[0].ErrorCode)
	assert.Equal(t, string(resp["id"].(doc.String)), latest[1].ID)
	assert.Equal(t, int64(1), latest[1].Seq)
}

func TestTranslate_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/translate", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- ListenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler(), config.DefaultShutdownTimeout, log)
	}()
	cancel()

	assert.NoError(t, <-done)
}
