package parser

import (
	"testing"

	"github.com/memcshard/memcshard/mbuf"
	"github.com/memcshard/memcshard/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_SingleLineReplies(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)

	cases := map[string]message.Type{
		"STORED\r\n":     message.RspStored,
		"NOT_FOUND\r\n":  message.RspNotFound,
		"DELETED\r\n":    message.RspDeleted,
		"TOUCHED\r\n":    message.RspTouched,
		"VERSION 1.6\r\n": message.RspVersion,
	}
	for line, want := range cases {
		ch := chainOf(pool, line)
		m, res, err := new(Decoder).ParseResponse(ch, pool)
		require.NoError(t, err)
		require.Equal(t, OK, res)
		assert.Equal(t, want, m.Type)
	}
}

func TestParseResponse_Number(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "7\r\n")

	m, res, err := new(Decoder).ParseResponse(ch, pool)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.RspNumber, m.Type)
	assert.Equal(t, int64(7), m.Number)
}

func TestParseResponse_SingleValue_ThenEnd(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "VALUE foo 0 5\r\nhello\r\nEND\r\n")

	m, res, err := new(Decoder).ParseResponse(ch, pool)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.RspEnd, m.Type)
	require.Len(t, m.Values, 1)
	assert.Equal(t, "foo", string(m.Values[0].Key))
	assert.Equal(t, "hello", string(m.Values[0].Data))
}

func TestParseResponse_MultiValue(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "VALUE a 0 1\r\nx\r\nVALUE b 0 1\r\ny\r\nEND\r\n")

	m, res, err := new(Decoder).ParseResponse(ch, pool)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	require.Len(t, m.Values, 2)
	assert.Equal(t, "a", string(m.Values[0].Key))
	assert.Equal(t, "b", string(m.Values[1].Key))
}

func TestParseResponse_Miss_IsBareEnd(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "END\r\n")

	m, res, err := new(Decoder).ParseResponse(ch, pool)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.RspEnd, m.Type)
	assert.Empty(t, m.Values)
}

func TestParseResponse_Again_PartialValueBody(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "VALUE foo 0 5\r\nhel")

	_, res, err := new(Decoder).ParseResponse(ch, pool)
	require.NoError(t, err)
	assert.Equal(t, Again, res)
}

func TestParseResponse_MultiValue_SurvivesAgainMidRun(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "VALUE a 0 1\r\nx\r\nVALUE b 0 1\r\ny")
	d := new(Decoder)

	_, res, err := d.ParseResponse(ch, pool)
	require.NoError(t, err)
	require.Equal(t, Again, res, "second VALUE's body hasn't arrived yet")

	ch.Append(pool, []byte("\r\nEND\r\n"))
	m, res, err := d.ParseResponse(ch, pool)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	require.Len(t, m.Values, 2, "the first VALUE parsed before the Again must not be lost")
	assert.Equal(t, "a", string(m.Values[0].Key))
	assert.Equal(t, "b", string(m.Values[1].Key))
}

func TestParseResponse_UnrecognizedLine_IsError(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "GARBAGE\r\n")

	_, res, err := new(Decoder).ParseResponse(ch, pool)
	assert.Equal(t, Error, res)
	assert.ErrorIs(t, err, ErrBadResponse)
}
