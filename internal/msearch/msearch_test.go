package msearch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filterjoin/internal/doc"
)

const body = `{"index":["companies"]}
{"query":{"match_all":{}},"size":10}

{"index":["articles"],"preference":"x"}
{"query":{"term":{"lang":"en"}}}
`

func TestParse(t *testing.T) {
	searches, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, searches, 2)

	assert.Equal(t, doc.Object{"index": doc.Array{doc.String("companies")}}, searches[0].Header)
	assert.Equal(t, doc.Number("10"), searches[0].Body.(doc.Object)["size"])
	assert.Equal(t, doc.String("x"), searches[1].Header.(doc.Object)["preference"])
}

func TestParse_Unpaired(t *testing.T) {
	_, err := Parse([]byte("{\"index\":\"a\"}\n{\"query\":{}}\n{\"index\":\"b\"}\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnpaired))
	assert.Contains(t, err.Error(), "got 3 lines")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("{\"index\":\"a\"}\n{\"query\":\n"))
	require.Error(t, err)
}

func TestEncode_RoundTripsLines(t *testing.T) {
	searches, err := Parse([]byte(body))
	require.NoError(t, err)

	out, err := Encode(searches)
	require.NoError(t, err)
	assert.Equal(t,
		"{\"index\":[\"companies\"]}\n{\"query\":{\"match_all\":{}},\"size\":10}\n"+
			"{\"index\":[\"articles\"],\"preference\":\"x\"}\n{\"query\":{\"term\":{\"lang\":\"en\"}}}\n",
		string(out))
}

func TestMap_OnlyTouchesBodies(t *testing.T) {
	searches, err := Parse([]byte(body))
	require.NoError(t, err)

	out, err := Map(searches, func(v doc.Value) (doc.Value, error) {
		return doc.Object{"wrapped": v}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, searches[0].Header, out[0].Header)
	assert.Equal(t, searches[1].Body, out[1].Body.(doc.Object)["wrapped"])

	// Input searches are left as they were
	assert.NotContains(t, searches[0].Body.(doc.Object), "wrapped")
}

func TestMap_StopsAtFirstError(t *testing.T) {
	searches, err := Parse([]byte(body))
	require.NoError(t, err)

	calls := 0
	_, err = Map(searches, func(v doc.Value) (doc.Value, error) {
		calls++
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, "search 0: boom", err.Error())
	assert.Equal(t, 1, calls)
}

func TestBodies(t *testing.T) {
	searches, err := Parse([]byte(body))
	require.NoError(t, err)
	bodies := Bodies(searches)
	require.Len(t, bodies, 2)
	assert.Equal(t, searches[1].Body, bodies[1])
}
