package serverpool

import (
	"github.com/memcshard/memcshard/conn"
)

// Backend is one configured memcached server: its address and ketama
// weight, the live connections opened to it (capped at
// server_connections), and the failure/ejection bookkeeping described in
// original_source/src/nc_server.c's struct server.
type Backend struct {
	Index  int
	Name   string // ketama digest input: "host:port" by default, or a configured alias
	Addr   string // "host:port" to dial
	Weight int

	// Conns holds up to Pool.ServerConnections live connections to this
	// backend, created lazily on first use by GetConnection
	// (server_connections in the original config bounds fan-out
	// concurrency per backend, not a pre-warmed pool). Nothing dials a
	// backend ahead of first use; config.Pool's Preconnect is parsed but
	// not acted on.
	Conns []*conn.Connection
	next  int // round-robin cursor into Conns

	FailureCount int
	// EjectedUntil is the millisecond timestamp this backend may be
	// retried again; zero means not ejected.
	EjectedUntil int64
}

// Ejected reports whether the backend is currently serving its retry
// backoff as of now (a millisecond timestamp).
func (b *Backend) Ejected(now int64) bool { return b.EjectedUntil > now }

// nextConn returns the backend's next connection in round-robin order for
// dispatch, or nil if none have been opened yet.
func (b *Backend) nextConn() *conn.Connection {
	for range b.Conns {
		c := b.Conns[b.next]
		b.next = (b.next + 1) % len(b.Conns)
		if c != nil && !c.Closed() {
			return c
		}
	}
	return nil
}
