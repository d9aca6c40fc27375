package serverpool

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcshard/memcshard/hashring"
	"github.com/memcshard/memcshard/mbuf"
)

// listenerSpec starts a throwaway TCP listener and returns a ServerSpec
// pointing at it, so dial-based tests exercise a real non-blocking
// connect rather than guessing at a free port.
func listenerSpec(t *testing.T) (ServerSpec, net.Listener) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return ServerSpec{Host: host, Port: port, Weight: 1}, ln
}

func TestNew_Defaults(t *testing.T) {
	spec, ln := listenerSpec(t)
	defer ln.Close()

	p, err := New(Config{
		Servers:  []ServerSpec{spec},
		MbufPool: mbuf.NewPool(512, 16),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.cfg.ServerConnections)
	assert.Equal(t, 2, p.cfg.FailureLimit)
	assert.EqualValues(t, 30000, p.cfg.RetryTimeoutMs)
	assert.Len(t, p.Backends, 1)
	assert.Equal(t, net.JoinHostPort(spec.Host, strconv.Itoa(spec.Port)), p.Backends[0].Addr)
}

func TestLookup_ModulaIsDeterministic(t *testing.T) {
	specA, lnA := listenerSpec(t)
	defer lnA.Close()
	specB, lnB := listenerSpec(t)
	defer lnB.Close()

	p, err := New(Config{
		Servers:      []ServerSpec{specA, specB},
		Distribution: hashring.Modula,
		MbufPool:     mbuf.NewPool(512, 16),
	})
	require.NoError(t, err)

	idx1, ok1 := p.Lookup([]byte("foo"))
	idx2, ok2 := p.Lookup([]byte("foo"))
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, idx1, idx2)
}

func TestGetConnection_RespectsServerConnectionsCap(t *testing.T) {
	spec, ln := listenerSpec(t)
	defer ln.Close()

	p, err := New(Config{
		Servers:           []ServerSpec{spec},
		ServerConnections: 2,
		MbufPool:          mbuf.NewPool(512, 16),
	})
	require.NoError(t, err)

	c1, err := p.GetConnection(0)
	require.NoError(t, err)
	c2, err := p.GetConnection(0)
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	assert.Len(t, p.Backends[0].Conns, 2)

	c3, err := p.GetConnection(0)
	require.NoError(t, err)
	// Cap reached: round robin reuses c1 rather than dialing a third.
	assert.Same(t, c1, c3)
	assert.Len(t, p.Backends[0].Conns, 2)

	c1.Close()
	c2.Close()
}

func TestGetConnection_RedialsAfterAllConnectionsClosed(t *testing.T) {
	spec, ln := listenerSpec(t)
	defer ln.Close()

	p, err := New(Config{
		Servers:           []ServerSpec{spec},
		ServerConnections: 1,
		MbufPool:          mbuf.NewPool(512, 16),
	})
	require.NoError(t, err)

	c1, err := p.GetConnection(0)
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	c2, err := p.GetConnection(0)
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	defer c2.Close()
}

func TestRecordFailure_EjectsAfterLimitAndRebuildsRing(t *testing.T) {
	specA, lnA := listenerSpec(t)
	defer lnA.Close()
	specB, lnB := listenerSpec(t)
	defer lnB.Close()

	now := int64(1000)
	p, err := New(Config{
		Servers:        []ServerSpec{specA, specB},
		AutoEjectHosts: true,
		FailureLimit:   2,
		RetryTimeoutMs: 5000,
		MbufPool:       mbuf.NewPool(512, 16),
		NowMs:          func() int64 { return now },
	})
	require.NoError(t, err)
	require.Equal(t, 2, p.ring.NumMembers())

	p.RecordFailure(0, now)
	assert.Equal(t, 2, p.ring.NumMembers()) // below limit, still in ring

	p.RecordFailure(0, now)
	assert.Equal(t, 1, p.ring.NumMembers()) // ejected, ring rebuilt
	assert.True(t, p.Backends[0].Ejected(now))

	idx, ok := p.Lookup([]byte("any-key"))
	require.True(t, ok)
	assert.Equal(t, 1, idx) // only backend 1 remains routable
}

func TestRecordFailure_WithoutAutoEject_LeavesRingUnchanged(t *testing.T) {
	spec, ln := listenerSpec(t)
	defer ln.Close()

	now := int64(0)
	p, err := New(Config{
		Servers:        []ServerSpec{spec},
		AutoEjectHosts: false,
		FailureLimit:   1,
		MbufPool:       mbuf.NewPool(512, 16),
		NowMs:          func() int64 { return now },
	})
	require.NoError(t, err)

	p.RecordFailure(0, now)
	assert.True(t, p.Backends[0].Ejected(now))
	assert.Equal(t, 1, p.ring.NumMembers()) // not auto-ejecting: stays routable
}

func TestCheckRecovery_UnejectsAfterRetryTimeout(t *testing.T) {
	specA, lnA := listenerSpec(t)
	defer lnA.Close()
	specB, lnB := listenerSpec(t)
	defer lnB.Close()

	now := int64(1000)
	p, err := New(Config{
		Servers:        []ServerSpec{specA, specB},
		AutoEjectHosts: true,
		FailureLimit:   1,
		RetryTimeoutMs: 1000,
		MbufPool:       mbuf.NewPool(512, 16),
		NowMs:          func() int64 { return now },
	})
	require.NoError(t, err)

	p.RecordFailure(0, now)
	assert.Equal(t, 1, p.ring.NumMembers())

	p.CheckRecovery(now + 500)
	assert.Equal(t, 1, p.ring.NumMembers()) // not yet past retry timeout

	p.CheckRecovery(now + 1500)
	assert.Equal(t, 2, p.ring.NumMembers()) // recovered, ring rebuilt
	assert.Equal(t, 0, p.Backends[0].FailureCount)
}

func TestRecordSuccess_ResetsFailureCount(t *testing.T) {
	spec, ln := listenerSpec(t)
	defer ln.Close()

	p, err := New(Config{
		Servers:      []ServerSpec{spec},
		FailureLimit: 3,
		MbufPool:     mbuf.NewPool(512, 16),
	})
	require.NoError(t, err)

	p.RecordFailure(0, 0)
	p.RecordFailure(0, 0)
	assert.Equal(t, 2, p.Backends[0].FailureCount)

	p.RecordSuccess(0)
	assert.Equal(t, 0, p.Backends[0].FailureCount)
}
