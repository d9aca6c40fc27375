package core_test

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcshard/memcshard/core"
	"github.com/memcshard/memcshard/logging"
	"github.com/memcshard/memcshard/serverpool"
)

// startFakeBackend is the same minimal canned-response stand-in used by
// package router's tests, duplicated here rather than exported from
// router_test (an internal test helper isn't part of any package's public
// surface) since core's own tests need the same thing to exercise a full
// Context end to end.
func startFakeBackend(t *testing.T, responses map[string]string) (addr string, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					if resp, ok := responses[string(buf[:n])]; ok {
						if _, err := c.Write([]byte(resp)); err != nil {
							return
						}
					}
				}
			}(c)
		}
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

func TestContext_RunServesRequestsAndShutsDownCleanly(t *testing.T) {
	backendAddr, closeBackend := startFakeBackend(t, map[string]string{
		"get foo\r\n": "END\r\n",
	})
	defer closeBackend()

	host, portStr, err := net.SplitHostPort(backendAddr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ctx, err := core.New(core.Options{Log: logging.Discard(), TickMs: 20})
	require.NoError(t, err)

	servers, err := serverpool.New(serverpool.Config{
		Servers:  []serverpool.ServerSpec{{Host: host, Port: port, Weight: 1}},
		MbufPool: ctx.Pool,
	})
	require.NoError(t, err)

	_, err = ctx.AddPool("default", "127.0.0.1:0", servers, 0)
	require.NoError(t, err)

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- ctx.Run() }()

	proxyPort, err := ctx.Pools()[0].Listener.LocalPort()
	require.NoError(t, err)

	client, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(proxyPort)))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte("get foo\r\n"))
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "END\r\n", string(buf[:n]))

	require.NoError(t, ctx.Shutdown())
	select {
	case err := <-runErrCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}

	assert.NoError(t, ctx.Close())
}

func TestContext_SnapshotReflectsBackendState(t *testing.T) {
	backendAddr, closeBackend := startFakeBackend(t, map[string]string{})
	defer closeBackend()

	host, portStr, err := net.SplitHostPort(backendAddr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ctx, err := core.New(core.Options{Log: logging.Discard(), TickMs: 20})
	require.NoError(t, err)

	servers, err := serverpool.New(serverpool.Config{
		Servers:  []serverpool.ServerSpec{{Host: host, Port: port, Weight: 1, Name: "backend-a"}},
		MbufPool: ctx.Pool,
	})
	require.NoError(t, err)

	_, err = ctx.AddPool("default", "127.0.0.1:0", servers, 0)
	require.NoError(t, err)

	snapCh := make(chan core.Snapshot, 1)
	ctx.EventBase.ScheduleTimer(10, func() {
		snapCh <- ctx.Snapshot()
		ctx.Shutdown()
	})

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- ctx.Run() }()

	var snap core.Snapshot
	select {
	case snap = <-snapCh:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot timer never fired")
	}
	select {
	case err := <-runErrCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
	assert.NoError(t, ctx.Close())

	require.Len(t, snap.Pools, 1)
	require.Len(t, snap.Pools[0].Servers, 1)
	assert.Equal(t, "backend-a", snap.Pools[0].Servers[0].Name)
	assert.False(t, snap.Pools[0].Servers[0].Ejected)
}
