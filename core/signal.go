package core

import (
	"golang.org/x/sys/unix"

	"github.com/memcshard/memcshard/evloop"
)

// selfPipe is the self-pipe SPEC_FULL.md's concurrency model calls for: a
// non-blocking pipe whose read end is registered with the event base like
// any other fd, and whose write end anything outside the loop goroutine
// (a signal.Notify trampoline, a test) can write a byte to in order to
// wake the loop through the ordinary readiness path rather than an
// interrupted syscall. It satisfies evloop.Conn.
type selfPipe struct {
	r, w int
}

func newSelfPipe() (*selfPipe, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, err
	}
	return &selfPipe{r: fds[0], w: fds[1]}, nil
}

// FD satisfies evloop.Conn.
func (s *selfPipe) FD() int { return s.r }

// HasOutput satisfies evloop.Conn; the self-pipe is read-only from the
// loop's perspective.
func (s *selfPipe) HasOutput() bool { return false }

// notify writes a single byte to the pipe, waking the loop's next Wait
// call. It is safe to call from any goroutine, including concurrently
// with the loop draining the read end: a one-byte write to a pipe is
// atomic regardless of what the reader is doing.
func (s *selfPipe) notify() error {
	_, err := unix.Write(s.w, []byte{0})
	if err == unix.EAGAIN {
		// The pipe already has a pending byte queued; the loop hasn't
		// drained it yet, so there is nothing further to signal.
		return nil
	}
	return err
}

// drain empties the pipe's read end, mirroring the self-pipe pattern's
// usual "read until EAGAIN" drain so a burst of notify calls collapses
// into a single wakeup rather than one readiness event per byte.
func (s *selfPipe) drain() {
	buf := make([]byte, 64)
	for {
		_, err := unix.Read(s.r, buf)
		if err != nil {
			return
		}
	}
}

func (s *selfPipe) close() error {
	unix.Close(s.w)
	return unix.Close(s.r)
}

// signalCallback builds the evloop.IOCallback registered for the
// self-pipe: drain whatever bytes arrived, then mark the context stopped.
// Shutdown is the only producer of these bytes today, but the mechanism
// itself is generic (any future wakeup reason rides the same pipe).
func (ctx *Context) signalCallback(sig *selfPipe) evloop.IOCallback {
	return func(events evloop.IOEvents) {
		sig.drain()
		ctx.stop = true
	}
}
