package conn

import (
	"github.com/memcshard/memcshard/evloop"
	"github.com/memcshard/memcshard/mbuf"
	"github.com/memcshard/memcshard/message"
	"github.com/memcshard/memcshard/parser"
)

// Connection is one proxy-listener, client, or server socket: its raw fd,
// its input/output chains, and whatever in-flight message bookkeeping its
// Kind needs. It satisfies evloop.Conn so it can be registered directly
// with an EventBase.
//
// A Connection has no mutex: the core loop and everything it calls runs on
// a single goroutine per SPEC_FULL.md's concurrency model, the same way
// original_source/src/nc_core.c's core_loop never shares a conn across
// threads.
type Connection struct {
	Kind  Kind
	State State
	fd    int

	Pool *mbuf.Pool
	In   mbuf.Chain
	Out  mbuf.Chain

	// ServerIndex names which serverpool slot a server Connection backs.
	// Unused for listener/client kinds.
	ServerIndex int

	// Forwarded is the FIFO of messages this connection is responsible for
	// pairing a reply to, in arrival order:
	//   - on a server Connection, requests sent to the backend awaiting
	//     its response (paired head-first per SPEC_FULL.md's FIFO rule);
	//   - on a client Connection, requests received from the client
	//     awaiting a response (or fragment completion) to write back.
	Forwarded []*message.Message

	// Decoder holds a server connection's in-progress retrieval-response
	// parse state across socket reads. Zero value is ready to use; unused
	// by listener/client kinds.
	Decoder parser.Decoder

	// CloseTimer, if non-nil, is the pending connect/reconnect or
	// request-idle timeout armed against this connection; Close cancels it.
	CloseTimer *evloop.Timer

	// OnClose, if set, is invoked exactly once when Close runs, so the
	// router/serverpool can unregister the connection from whatever
	// bookkeeping (the live backend table, the listener's client set)
	// referenced it. Set by the owner at construction time.
	OnClose func(*Connection)

	// DrainThenClose marks a client connection the router has already
	// decided to half-close (a parse or key-constraint error per
	// SPEC_FULL.md's error taxonomy): the error line already queued onto
	// Out must still reach the client before the fd goes away, so Close
	// is deferred until Out drains rather than called immediately.
	DrainThenClose bool

	closed bool
}

// FD returns the connection's raw file descriptor, satisfying evloop.Conn.
func (c *Connection) FD() int { return c.fd }

// HasOutput reports whether this connection has queued bytes still to
// write, satisfying evloop.Conn - AddConn/AddOut/DelOut use this to decide
// whether write readiness needs to stay armed.
func (c *Connection) HasOutput() bool { return !c.Out.Empty() }

// EnqueueForwarded appends m to the tail of the FIFO.
func (c *Connection) EnqueueForwarded(m *message.Message) {
	c.Forwarded = append(c.Forwarded, m)
}

// PeekForwarded returns the head of the FIFO without removing it, or nil.
func (c *Connection) PeekForwarded() *message.Message {
	if len(c.Forwarded) == 0 {
		return nil
	}
	return c.Forwarded[0]
}

// DequeueForwarded removes and returns the head of the FIFO, or nil if
// empty. Forwarded's backing array is compacted lazily (by re-slicing from
// index 1) since the queue depth tracks server_connections / pipeline
// depth, not an unbounded backlog.
func (c *Connection) DequeueForwarded() *message.Message {
	if len(c.Forwarded) == 0 {
		return nil
	}
	m := c.Forwarded[0]
	c.Forwarded[0] = nil
	c.Forwarded = c.Forwarded[1:]
	return m
}

// Closed reports whether Close has already run.
func (c *Connection) Closed() bool { return c.closed }
