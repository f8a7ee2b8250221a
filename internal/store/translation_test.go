package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filterjoin/internal/doc"
	"github.com/roach88/filterjoin/internal/joinspec"
)

func TestNewTranslation_Success(t *testing.T) {
	input := doc.MustParse(`{"b": 1, "a": [true, null]}`)
	output := doc.MustParse(`{"z": "x"}`)

	tr, err := NewTranslation("graph", input, output, 3, nil)
	require.NoError(t, err)

	assert.Len(t, tr.ID, 36)
	assert.Equal(t, "graph", tr.Mode)
	assert.Equal(t, `{"a":[true,null],"b":1}`, tr.Input)
	assert.Equal(t, `{"z":"x"}`, tr.Output)
	assert.Equal(t, 3, tr.Joins)
	assert.False(t, tr.Failed())

	hash, err := doc.ContentHash(doc.DomainTranslationInput, input)
	require.NoError(t, err)
	assert.Equal(t, hash, tr.InputHash)
}

func TestNewTranslation_Failure(t *testing.T) {
	input := doc.MustParse(`{"join_sequence": []}`)
	compileErr := joinspec.NewError(joinspec.KindStructure, joinspec.ErrCodeSequenceShape, "Specify the join sequence: []")

	tr, err := NewTranslation("sequence", input, nil, 7, compileErr)
	require.NoError(t, err)
	assert.True(t, tr.Failed())
	assert.Equal(t, "E201", tr.ErrorCode)
	assert.Contains(t, tr.ErrorMessage, "Specify the join sequence")
	assert.Empty(t, tr.Output)
	assert.Zero(t, tr.Joins)
}

func TestNewTranslation_UncodedFailure(t *testing.T) {
	tr, err := NewTranslation("all", doc.Object{}, nil, 0, errors.New("bad body"))
	require.NoError(t, err)
	assert.Empty(t, tr.ErrorCode)
	assert.Equal(t, "bad body", tr.ErrorMessage)
}

func TestNewTranslation_UniqueIDs(t *testing.T) {
	a, err := NewTranslation("all", doc.Object{}, doc.Object{}, 0, nil)
	require.NoError(t, err)
	b, err := NewTranslation("all", doc.Object{}, doc.Object{}, 0, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, uuid.Version(7), uuid.MustParse(a.ID).Version())
}

func TestRecord_AssignsIncreasingSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.Record(ctx, createTestTranslation(t, `{"q": 1}`))
	require.NoError(t, err)
	second, err := s.Record(ctx, createTestTranslation(t, `{"q": 2}`))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
}

func TestRecord_DuplicateIDFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tr := createTestTranslation(t, `{"q": 1}`)
	_, err := s.Record(ctx, tr)
	require.NoError(t, err)

	_, err = s.Record(ctx, tr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record translation")
}

func TestLatest_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, q := range []string{`{"q": 1}`, `{"q": 2}`, `{"q": 3}`} {
		_, err := s.Record(ctx, createTestTranslation(t, q))
		require.NoError(t, err)
	}

	latest, err := s.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(3), latest[0].Seq)
	assert.Equal(t, `{"q":3}`, latest[0].Input)
	assert.Equal(t, int64(2), latest[1].Seq)
}

func TestLatest_Empty(t *testing.T) {
	s := createTestStore(t)

	latest, err := s.Latest(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, latest)
	assert.Empty(t, latest)

	latest, err = s.Latest(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestGet_RoundTripsFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tr, err := NewTranslation("graph", doc.MustParse(`{"join": {}}`), nil, 0,
		joinspec.NewError(joinspec.KindStructure, joinspec.ErrCodeMissingField, "Missing focus field"))
	require.NoError(t, err)
	recorded, err := s.Record(ctx, tr)
	require.NoError(t, err)

	got, err := s.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, recorded, got)
	assert.Equal(t, "E210", got.ErrorCode)
	assert.Empty(t, got.Output)
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCountByHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := createTestTranslation(t, `{"a": 1, "b": 2}`)
	b := createTestTranslation(t, `{"b": 2, "a": 1}`)
	c := createTestTranslation(t, `{"a": 2}`)
	for _, tr := range []Translation{a, b, c} {
		_, err := s.Record(ctx, tr)
		require.NoError(t, err)
	}

	n, err := s.CountByHash(ctx, a.InputHash)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
