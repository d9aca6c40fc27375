package conn

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by Recv/Send on a Connection that has already been
// closed.
var ErrClosed = errors.New("conn: connection closed")

// Recv drains as much as the socket currently has buffered into c.In,
// growing the chain with fresh chunks from c.Pool as needed, stopping at
// EAGAIN/EWOULDBLOCK. It mirrors conn_recv: return nil (possibly with
// n==0) for "made progress or would block, try again next readiness
// event"; return io.EOF once the peer has cleanly closed its write side;
// return any other error as unrecoverable, per SPEC_FULL.md's recv
// contract ("never blocks; OK on progress or would-block, ERROR on
// unrecoverable failure").
func (c *Connection) Recv() (n int, err error) {
	if c.closed {
		return 0, ErrClosed
	}
	for {
		chunk := c.In.LastWritable()
		if chunk == nil {
			chunk = c.Pool.Get()
			c.In.PushBack(chunk)
		}
		buf := chunk.Writable()
		if len(buf) == 0 {
			// Tail chunk is full but LastWritable only returns non-full
			// chunks; this can't happen, but guard rather than spin.
			return n, nil
		}
		got, rerr := unix.Read(c.fd, buf)
		if got > 0 {
			chunk.CommitWrite(got)
			n += got
		}
		if rerr == nil && got == 0 {
			return n, io.EOF
		}
		if rerr != nil {
			if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
				return n, nil
			}
			if rerr == unix.EINTR {
				continue
			}
			return n, rerr
		}
		if got < len(buf) {
			// Short read on a non-blocking socket means the socket buffer
			// is drained for now; no need to loop again until the next
			// readiness event.
			return n, nil
		}
	}
}

// Send flushes as much of c.Out as the socket will currently accept,
// advancing each chunk's read cursor by however much was actually written
// and releasing fully-drained chunks back to c.Pool. It mirrors conn_send's
// "writev across the output chain, stopping at the first short write."
func (c *Connection) Send() (n int, err error) {
	if c.closed {
		return 0, ErrClosed
	}
	for {
		chunk := c.Out.Head()
		if chunk == nil {
			return n, nil
		}
		buf := chunk.Unread()
		if len(buf) == 0 {
			c.Out.DrainEmpty(c.Pool)
			// DrainEmpty keeps a lone drained chunk around; release it so a
			// fully flushed chain reads as Empty (and HasOutput as false).
			if h := c.Out.Head(); h != nil && h == c.Out.Tail() && h.Empty() {
				c.Out.Release(c.Pool)
			}
			return n, nil
		}
		got, werr := unix.Write(c.fd, buf)
		if got > 0 {
			chunk.Advance(got)
			n += got
			c.Out.DrainEmpty(c.Pool)
		}
		if werr != nil {
			if werr == unix.EAGAIN || werr == unix.EWOULDBLOCK {
				return n, nil
			}
			if werr == unix.EINTR {
				continue
			}
			return n, werr
		}
		if got < len(buf) {
			return n, nil
		}
	}
}

// ConnectError reads and clears SO_ERROR on a connecting socket, the
// standard non-blocking-connect completion check: once the fd reports
// write-ready, a zero SO_ERROR means the connection succeeded, any other
// value is the errno the connect would have failed with synchronously.
func (c *Connection) ConnectError() error {
	errno, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

// Close releases both chains back to the pool, cancels any pending timer,
// closes the raw fd, and invokes OnClose exactly once. Calling Close on an
// already-closed Connection is a no-op.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.State = StateClosed
	if c.CloseTimer != nil {
		c.CloseTimer.Cancel()
		c.CloseTimer = nil
	}
	c.In.Release(c.Pool)
	c.Out.Release(c.Pool)
	err := unix.Close(c.fd)
	if c.OnClose != nil {
		c.OnClose(c)
	}
	return err
}
