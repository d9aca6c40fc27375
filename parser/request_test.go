package parser

import (
	"strings"
	"testing"

	"github.com/memcshard/memcshard/mbuf"
	"github.com/memcshard/memcshard/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainOf(pool *mbuf.Pool, s string) *mbuf.Chain {
	ch := &mbuf.Chain{}
	ch.Append(pool, []byte(s))
	return ch
}

func TestParseRequest_SingleGet(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "get foo\r\n")

	m, res, err := ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.ReqGet, m.Type)
	require.Len(t, m.Keys, 1)
	assert.Equal(t, "foo", string(m.Keys[0]))
	assert.True(t, ch.Empty() || ch.Head().Empty())
}

func TestParseRequest_Again_OnPartialHeader(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "get fo")

	m, res, err := ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	assert.Equal(t, Again, res)
	assert.Nil(t, m)
}

func TestParseRequest_Storage_AgainUntilBodyArrives(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "set foo 0 0 5\r\nhel")

	m, res, err := ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	assert.Equal(t, Again, res)
	assert.Nil(t, m)

	ch.Append(pool, []byte("lo\r\n"))
	m, res, err = ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.ReqSet, m.Type)
	assert.Equal(t, 5, m.Vlen)
	assert.Equal(t, "hello", string(m.Chain.Bytes()))
}

func TestParseRequest_Cas_WithNoReply(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "cas foo 0 0 3 42 noreply\r\nbar\r\n")

	m, res, err := ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.ReqCas, m.Type)
	assert.Equal(t, uint64(42), m.CAS)
	assert.True(t, m.NoReply)
	assert.Equal(t, "bar", string(m.Chain.Bytes()))
}

func TestParseRequest_Delete_IncrDecr_Touch(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)

	ch := chainOf(pool, "delete foo\r\n")
	m, res, err := ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.ReqDelete, m.Type)

	ch = chainOf(pool, "incr foo 5\r\n")
	m, res, err = ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.ReqIncr, m.Type)
	assert.Equal(t, int64(5), m.Number)

	ch = chainOf(pool, "touch foo 100\r\n")
	m, res, err = ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.ReqTouch, m.Type)
	assert.Equal(t, uint32(100), m.Exptime)
}

func TestParseRequest_QuitVersionStats(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)

	ch := chainOf(pool, "quit\r\n")
	m, res, err := ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.ReqQuit, m.Type)

	ch = chainOf(pool, "version\r\n")
	m, res, err = ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.ReqVersion, m.Type)

	ch = chainOf(pool, "stats slabs\r\n")
	m, res, err = ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, message.ReqStats, m.Type)
	require.Len(t, m.Keys, 1)
	assert.Equal(t, "slabs", string(m.Keys[0]))
}

func TestParseRequest_KeyTooLong(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	longKey := strings.Repeat("k", MaxKeyLength+1)
	ch := chainOf(pool, "get "+longKey+"\r\n")

	_, res, err := ParseRequest(ch, pool, nil)
	assert.Equal(t, Error, res)
	assert.ErrorIs(t, err, ErrKeyTooLong)
}

func TestParseRequest_UnknownCommand(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "bogus foo\r\n")

	_, res, err := ParseRequest(ch, pool, nil)
	assert.Equal(t, Error, res)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestParseRequest_MultiGet_SameServer_OK(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "get a b c\r\n")
	route := func(key []byte) int { return 3 } // every key maps to the same backend

	m, res, err := ParseRequest(ch, pool, route)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, 3, m.ServerIndex)
	assert.Len(t, m.Keys, 3)
}

func TestParseRequest_MultiGet_DifferentServers_Fragment(t *testing.T) {
	pool := mbuf.NewPool(mbuf.DefaultSize, 0)
	ch := chainOf(pool, "get a b c\r\n")
	route := func(key []byte) int {
		switch string(key) {
		case "a":
			return 0
		case "b":
			return 1
		default:
			return 0
		}
	}

	m, res, err := ParseRequest(ch, pool, route)
	require.NoError(t, err)
	require.Equal(t, Fragment, res)
	require.Len(t, m.Keys, 3)
}

func TestParseRequest_HeaderSpanningChunkBoundary_Repairs(t *testing.T) {
	pool := mbuf.NewPool(mbuf.MinSize, 0)
	ch := &mbuf.Chain{}
	// Force the header line across two chunks by filling two chunks by hand
	// with the two halves of the line, bypassing Chain.Append's natural
	// packing so each half lands in its own chunk.
	line := "get averylongkeyname\r\n"
	c1 := pool.Get()
	c1.Copy([]byte(line[:5]))
	ch.PushBack(c1)
	c2 := pool.Get()
	c2.Copy([]byte(line[5:]))
	ch.PushBack(c2)

	require.Equal(t, 2, ch.Len())

	_, res, err := ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	assert.Equal(t, Repair, res)
	assert.Equal(t, 1, ch.Len(), "the two chunks should have been merged into one")

	m, res, err := ParseRequest(ch, pool, nil)
	require.NoError(t, err)
	require.Equal(t, OK, res)
	assert.Equal(t, "averylongkeyname", string(m.Keys[0]))
}
