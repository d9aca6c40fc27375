package router

import (
	"github.com/memcshard/memcshard/conn"
	"github.com/memcshard/memcshard/evloop"
	"github.com/memcshard/memcshard/message"
)

// connCallback builds the evloop.IOCallback registered for c, dispatching
// readiness bits to the handler appropriate to c's Kind and State. Every
// Connection the router ever registers - listener, client, or server -
// goes through this single dispatch point, mirroring how original_source
// routes every conn's readiness through core_core() to a single
// per-conn_type handler table.
func (r *Router) connCallback(c *conn.Connection) evloop.IOCallback {
	return func(events evloop.IOEvents) {
		if events&(evloop.EventError|evloop.EventHangup) != 0 {
			r.handleConnError(c)
			return
		}

		switch c.Kind {
		case conn.KindListener:
			if events&evloop.EventRead != 0 {
				r.HandleListenerReadable(c)
			}
		case conn.KindClient:
			if events&evloop.EventRead != 0 {
				r.HandleClientReadable(c)
			}
			if !c.Closed() && events&evloop.EventWrite != 0 {
				r.HandleClientWritable(c)
			}
		case conn.KindServer:
			if c.State == conn.StateConnecting && events&evloop.EventWrite != 0 {
				r.completeServerConnect(c)
				if c.Closed() {
					return
				}
			}
			if !c.Closed() && events&evloop.EventRead != 0 {
				r.HandleServerReadable(c)
			}
			if !c.Closed() && events&evloop.EventWrite != 0 {
				r.HandleServerWritable(c)
			}
		}
	}
}

// handleConnError reacts to EventError/EventHangup, the poller's signal
// that the fd itself is no longer usable (RST, or the peer's write side
// closing with pending error state) independent of any readable bytes.
func (r *Router) handleConnError(c *conn.Connection) {
	switch c.Kind {
	case conn.KindServer:
		r.failAllForwarded(c, ErrConnectionReset)
		c.Close()
	case conn.KindClient:
		c.Close()
	case conn.KindListener:
		r.Log.Err().Log("listener reported an error event")
	}
}

// completeServerConnect resolves a non-blocking connect's outcome the
// first time a connecting backend socket reports write-ready, per
// conn.DialServer's contract. A failed connect fails every request
// already queued against it (there can be requests queued before the
// connect even resolves, since dispatch enqueues onto sc.Out/Forwarded
// immediately without waiting).
func (r *Router) completeServerConnect(sc *conn.Connection) {
	if err := sc.ConnectError(); err != nil {
		r.Log.Warning().Err(err).Log("backend connect failed")
		r.failAllForwarded(sc, err)
		sc.Close()
		return
	}
	sc.State = conn.StateOpen
	r.Servers.RecordSuccess(sc.ServerIndex)
	if !sc.HasOutput() {
		if err := r.EventBase.DelOut(sc); err != nil {
			r.Log.Err().Err(err).Log("failed to disarm write readiness after connect")
		}
	}
}

// HandleListenerReadable accepts every connection currently queued on a
// listener and registers each with the event base.
func (r *Router) HandleListenerReadable(l *conn.Connection) {
	conns, err := l.Accept(r.Pool)
	if err != nil {
		r.Log.Err().Err(err).Log("accept failed")
		return
	}
	for _, cl := range conns {
		if err := r.EventBase.AddConn(cl, r.connCallback(cl)); err != nil {
			r.Log.Err().Err(err).Log("failed to register client connection")
			cl.Close()
		}
	}
}

// HandleClientWritable flushes whatever a client connection has queued to
// write, disarming write-readiness once the output chain is empty - or,
// if dispatch already marked the connection DrainThenClose (a CLIENT_ERROR
// half-close), closing it outright once that flush completes.
func (r *Router) HandleClientWritable(cl *conn.Connection) {
	if _, err := cl.Send(); err != nil {
		cl.Close()
		return
	}
	if cl.HasOutput() {
		return
	}
	if cl.DrainThenClose {
		cl.Close()
		return
	}
	if err := r.EventBase.DelOut(cl); err != nil {
		r.Log.Err().Err(err).Log("failed to disarm client write readiness")
	}
}

// HandleServerWritable flushes whatever a backend connection has queued
// to write, disarming write-readiness once the output chain is empty. A
// still-connecting socket's write-ready event is handled entirely by
// completeServerConnect before this runs.
func (r *Router) HandleServerWritable(sc *conn.Connection) {
	if _, err := sc.Send(); err != nil {
		r.failAllForwarded(sc, err)
		sc.Close()
		return
	}
	if !sc.HasOutput() {
		if err := r.EventBase.DelOut(sc); err != nil {
			r.Log.Err().Err(err).Log("failed to disarm server write readiness")
		}
	}
}

// onRequestTimeout builds the callback armed against m's request timer:
// if it fires, m's timer was never canceled, which is conclusive proof no
// response ever arrived for it (pairResponse always cancels on success).
// The whole backend connection is torn down rather than just m, mirroring
// original_source's behavior of closing a server connection outright on a
// request timeout rather than surgically excising one FIFO entry.
func (r *Router) onRequestTimeout(sc *conn.Connection, m *message.Message) func() {
	return func() {
		r.Log.Warning().Uint64("msg_id", m.ID).Log("request timed out")
		r.failAllForwarded(sc, ErrRequestTimeout)
		sc.Close()
	}
}
