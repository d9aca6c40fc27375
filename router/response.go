package router

import (
	"github.com/memcshard/memcshard/conn"
	"github.com/memcshard/memcshard/message"
	"github.com/memcshard/memcshard/parser"
)

// HandleServerReadable drains a backend connection's socket and pairs
// every complete response it yields with the request sitting at the head
// of that connection's Forwarded FIFO, mirroring original_source's
// msg_recv/rsp_recv_next loop on the server side of nc_response.c.
func (r *Router) HandleServerReadable(sc *conn.Connection) {
	_, recvErr := sc.Recv()

loop:
	for {
		rsp, result, perr := sc.Decoder.ParseResponse(&sc.In, r.Pool)
		switch result {
		case parser.OK:
			r.pairResponse(sc, rsp)
		case parser.Repair:
			continue loop
		case parser.Error:
			r.Log.Warning().Err(perr).Log("malformed backend response")
			r.failAllForwarded(sc, perr)
			sc.Close()
			return
		case parser.Again:
			break loop
		}
	}

	if recvErr != nil {
		r.failAllForwarded(sc, recvErr)
		sc.Close()
	}
}

// pairResponse matches rsp against the request at sc's Forwarded head,
// cancels that request's timeout timer (a response arrived, so the timer
// firing later would be stale), and folds the pairing into whatever
// client connection is waiting on it.
func (r *Router) pairResponse(sc *conn.Connection, rsp *message.Message) {
	req := sc.DequeueForwarded()
	if req == nil {
		// A response with nothing queued to pair it against means the
		// backend is misbehaving (or this connection was reused across a
		// protocol desync); there's no request to attribute it to.
		r.Log.Warning().Log("unmatched backend response, dropping")
		return
	}
	if req.Timer != nil {
		req.Timer.Cancel()
	}
	req.Peer = rsp
	r.Servers.RecordSuccess(sc.ServerIndex)
	r.foldFragmentResponse(req)
}

// foldFragmentResponse advances the fan-out bookkeeping once req (a
// fragment or a standalone message) has a response, and checks whether
// req's owning client can now have output flushed to it.
func (r *Router) foldFragmentResponse(req *message.Message) {
	if !req.IsFragment() {
		r.flushOwnerQueue(req)
		return
	}
	parent := req.Parent
	parent.Outstanding--
	r.flushOwnerQueue(parent)
}

// failOneForwarded marks req failed with cause, folds that failure into
// its parent's fragment bookkeeping if req is a fragment, and flushes
// whatever client connection owns the message (or the fragment's parent)
// that may now be ready to answer.
func (r *Router) failOneForwarded(req *message.Message, cause error) {
	req.Err = cause
	if req.Timer != nil {
		req.Timer.Cancel()
	}
	if !req.IsFragment() {
		r.flushOwnerQueue(req)
		return
	}
	parent := req.Parent
	parent.FragmentFailures++
	parent.Outstanding--
	r.flushOwnerQueue(parent)
}

// failAllForwarded drains every request still queued on sc and fails each
// one with cause, used when sc itself is being torn down (reset, parse
// error, or request timeout) and can no longer produce any more
// responses. It also records the failure against sc's backend so
// repeated connection loss can trip auto-ejection.
func (r *Router) failAllForwarded(sc *conn.Connection, cause error) {
	r.Servers.RecordFailure(sc.ServerIndex, r.Servers.Now())
	for {
		req := sc.DequeueForwarded()
		if req == nil {
			return
		}
		r.failOneForwarded(req, cause)
	}
}

// flushOwnerQueue resolves m's owning client connection and flushes it,
// a no-op if the client has already closed (its eventual answer is simply
// discarded, preserving the backend-side FIFO without anywhere to write
// the result).
func (r *Router) flushOwnerQueue(m *message.Message) {
	cl, ok := m.Owner.(*conn.Connection)
	if !ok || cl == nil || cl.Closed() {
		return
	}
	r.flushClientQueue(cl)
}

// isReady reports whether m has everything it needs to be written back
// to its client: a fragmented message is ready once every fragment has
// concluded (successfully or not); any other message is ready once it
// has either a paired response or a recorded failure.
func isReady(m *message.Message) bool {
	if m.IsFragmented() {
		return m.Complete()
	}
	return m.Peer != nil || m.Err != nil
}

// flushClientQueue writes every response at the head of cl's Forwarded
// queue that is ready, in order, stopping at the first not-yet-ready
// message - this is what keeps pipelined, possibly multi-backend
// responses delivered to the client in the exact order they were
// requested, even though backends can finish answering them in any
// order.
func (r *Router) flushClientQueue(cl *conn.Connection) {
	for {
		m := cl.PeekForwarded()
		if m == nil || !isReady(m) {
			break
		}
		cl.DequeueForwarded()
		r.writeClientResponse(cl, m)
	}
	if cl.HasOutput() {
		r.armWrite(cl)
	}
}

// writeClientResponse renders m's outcome onto cl.Out: nothing at all for
// a swallowed, orphaned, or noreply-tagged message; a SERVER_ERROR line
// for a failed message (or a fragmented one whose fragments all failed
// while the pool auto-ejects hosts); otherwise the real reply, which for a
// fragmented get/gets is the surviving fragments' values.
func (r *Router) writeClientResponse(cl *conn.Connection, m *message.Message) {
	defer m.Release(r.Pool)

	if m.Orphaned || m.Swallow || m.NoReply {
		return
	}
	if m.Err != nil {
		writeErrorResponse(r.Pool, &cl.Out, m.Err)
		return
	}
	if m.IsFragmented() {
		defer func() {
			for _, frag := range m.Fragments {
				frag.Release(r.Pool)
			}
		}()
		// A get/gets fanned out across several backends only yields a
		// whole-response SERVER_ERROR once every fragment failed - the
		// auto_eject_hosts case where the whole key space is unreachable.
		// Any surviving fragment still answers with its own values; the
		// failed keys are simply absent, not an error, matching how a real
		// memcached client treats a missing VALUE line.
		if m.FragmentFailures > 0 && m.FragmentFailures == len(m.Fragments) && r.Servers.AutoEjectHosts() {
			writeErrorResponse(r.Pool, &cl.Out, ErrConnectionReset)
			return
		}
		var values []message.ValueItem
		for _, frag := range m.Fragments {
			if frag.Peer != nil {
				values = append(values, frag.Peer.Values...)
			}
		}
		writeValues(r.Pool, &cl.Out, values)
		cl.Out.Append(r.Pool, []byte("END\r\n"))
		return
	}

	rsp := m.Peer
	if rsp == nil {
		return
	}
	switch m.Type {
	case message.ReqGet, message.ReqGets:
		writeValues(r.Pool, &cl.Out, rsp.Values)
		cl.Out.Append(r.Pool, []byte("END\r\n"))
	case message.ReqVersion:
		writeLocalVersion(r.Pool, &cl.Out)
	case message.ReqStats:
		writeLocalStats(r.Pool, &cl.Out)
	default:
		writeSingleLineResponse(r.Pool, &cl.Out, rsp)
	}
}
