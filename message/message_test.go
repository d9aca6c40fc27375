package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AssignsUniqueIDs(t *testing.T) {
	a := New(ReqGet)
	b := New(ReqGet)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestType_Classification(t *testing.T) {
	assert.True(t, ReqGet.IsRequest())
	assert.True(t, ReqGets.IsRequest())
	assert.False(t, RspValue.IsRequest())

	assert.True(t, ReqGet.IsRetrieval())
	assert.False(t, ReqSet.IsRetrieval())

	assert.True(t, ReqSet.IsStorage())
	assert.True(t, ReqCas.IsStorage())
	assert.False(t, ReqGet.IsStorage())
	assert.False(t, ReqDelete.IsStorage())
}

func TestFragment_OutstandingTracksCompletion(t *testing.T) {
	parent := New(ReqGet)
	parent.Keys = []Key{[]byte("a"), []byte("b")}

	f1 := parent.AddFragment(0, []Key{[]byte("a")})
	f2 := parent.AddFragment(1, []Key{[]byte("b")})

	require.Equal(t, 2, parent.Outstanding)
	assert.False(t, parent.Complete())
	assert.True(t, f1.IsFragment())
	assert.True(t, parent.IsFragmented())

	f1.FragmentDone()
	assert.False(t, parent.Complete())
	assert.Equal(t, 1, parent.Outstanding)

	f2.FragmentDone()
	assert.True(t, parent.Complete())
}

func TestFragment_DoneWithoutParentPanics(t *testing.T) {
	m := New(ReqGet)
	assert.Panics(t, func() { m.FragmentDone() })
}

func TestMessage_OwnerRoundTrips(t *testing.T) {
	type fakeConn struct{ name string }
	m := New(ReqGet)
	m.Owner = &fakeConn{name: "client-1"}

	owner, ok := m.Owner.(*fakeConn)
	require.True(t, ok)
	assert.Equal(t, "client-1", owner.name)
}

func TestFragment_DoneMoreThanOutstandingPanics(t *testing.T) {
	parent := New(ReqGet)
	f := parent.AddFragment(0, []Key{[]byte("a")})
	f.FragmentDone()
	assert.Panics(t, func() { f.FragmentDone() })
}
