package router

import (
	"errors"

	"github.com/memcshard/memcshard/conn"
	"github.com/memcshard/memcshard/message"
	"github.com/memcshard/memcshard/parser"
)

// ErrNoBackend is recorded on a request (or fragment) whose key currently
// hashes to no live member of the ring, the AutoEjectHosts case where
// every backend that could have served it is ejected.
var ErrNoBackend = errors.New("router: no backend available for key")

// HandleClientReadable drains a client connection's socket and dispatches
// every complete request it yields, mirroring original_source's
// msg_recv/req_recv_next loop: recv once, then parse (and dispatch)
// requests from the resulting input chain until it runs dry.
func (r *Router) HandleClientReadable(cl *conn.Connection) {
	_, recvErr := cl.Recv()

loop:
	for {
		m, result, perr := parser.ParseRequest(&cl.In, r.Pool, r.RouteKey)
		switch result {
		case parser.OK:
			r.dispatchSingle(cl, m)
		case parser.Fragment:
			r.dispatchFragmented(cl, m)
		case parser.Repair:
			continue loop
		case parser.Error:
			// Per SPEC_FULL.md's error taxonomy, a parse or key-constraint
			// violation is the client's own fault: answer CLIENT_ERROR and
			// half-close once it's been written, rather than keep parsing
			// whatever bytes follow a grammar violation.
			r.Log.Warning().Err(perr).Log("malformed client request")
			writeClientErrorResponse(r.Pool, &cl.Out, perr)
			cl.DrainThenClose = true
			r.armWrite(cl)
			break loop
		case parser.Again:
			break loop
		}
	}

	if recvErr != nil {
		// A clean EOF or a hard read error both mean this client is done;
		// any requests it still has in flight against backends are left
		// to drain there (flushOwnerQueue's Closed check discards their
		// eventual answers) so backend FIFO pairing stays intact.
		cl.Close()
	}
}

// dispatchSingle handles one non-fragmented parsed request: a command
// answered locally (version, stats, quit) or one forwarded to a single
// backend: the one the parser already resolved for get/gets, or the one
// the first key routes to for every other keyed command.
func (r *Router) dispatchSingle(cl *conn.Connection, m *message.Message) {
	m.Owner = cl

	switch m.Type {
	case message.ReqQuit:
		// A real client closes its write side immediately after "quit"
		// and expects no reply; there is nothing worth queuing behind.
		cl.Close()
		return
	case message.ReqVersion:
		m.Peer = message.New(message.RspVersion)
		cl.EnqueueForwarded(m)
		r.flushClientQueue(cl)
		return
	case message.ReqStats:
		m.Peer = message.New(message.RspEnd)
		cl.EnqueueForwarded(m)
		r.flushClientQueue(cl)
		return
	}

	idx := m.ServerIndex
	if !m.Type.IsRetrieval() && len(m.Keys) > 0 {
		// The parser only routes retrieval keys.
		idx = r.RouteKey(m.Keys[0])
		m.ServerIndex = idx
	}
	if idx < 0 {
		m.Err = ErrNoBackend
		cl.EnqueueForwarded(m)
		r.flushClientQueue(cl)
		return
	}
	sc, err := r.Servers.GetConnection(idx)
	if err != nil {
		// A synchronous dial failure (e.g. an immediate ECONNREFUSED on a
		// refused loopback port) never reaches completeServerConnect's
		// write-ready path, so it has to record its own failure here -
		// otherwise a backend that always fails synchronously would never
		// accumulate enough failures to be ejected.
		r.Servers.RecordFailure(idx, r.Servers.Now())
		m.Err = err
		cl.EnqueueForwarded(m)
		r.flushClientQueue(cl)
		return
	}

	forwardMessageBytes(r.Pool, &sc.Out, m)
	r.armWrite(sc)
	sc.EnqueueForwarded(m)
	cl.EnqueueForwarded(m)
	m.Timer = r.EventBase.ScheduleTimer(r.RequestTimeoutMs, r.onRequestTimeout(sc, m))
}

// dispatchFragmented handles a multi-key get/gets the parser determined
// routes to more than one backend: it splits m's keys into one
// sub-request per backend, forwards each independently, and leaves m
// itself sitting at the client's Forwarded head until every fragment's
// response (or failure) has been folded back into it.
func (r *Router) dispatchFragmented(cl *conn.Connection, m *message.Message) {
	m.Owner = cl

	groups := make(map[int][]message.Key)
	var order []int
	for _, k := range m.Keys {
		idx := r.RouteKey(k)
		if _, seen := groups[idx]; !seen {
			order = append(order, idx)
		}
		groups[idx] = append(groups[idx], k)
	}

	m.Fragments = make([]*message.Message, 0, len(order))
	m.Outstanding = len(order)
	cl.EnqueueForwarded(m)

	for _, idx := range order {
		frag := message.New(m.Type)
		frag.Parent = m
		frag.Keys = groups[idx]
		frag.ServerIndex = idx
		frag.Owner = cl
		m.Fragments = append(m.Fragments, frag)

		if idx < 0 {
			r.failOneForwarded(frag, ErrNoBackend)
			continue
		}
		sc, err := r.Servers.GetConnection(idx)
		if err != nil {
			r.Servers.RecordFailure(idx, r.Servers.Now())
			r.failOneForwarded(frag, err)
			continue
		}
		forwardMessageBytes(r.Pool, &sc.Out, frag)
		r.armWrite(sc)
		sc.EnqueueForwarded(frag)
		frag.Timer = r.EventBase.ScheduleTimer(r.RequestTimeoutMs, r.onRequestTimeout(sc, frag))
	}

	// A fragment that failed synchronously above (no dial ever happened,
	// so no later event will advance it) may already have completed the
	// whole fan-out; check now rather than waiting for an event that
	// isn't coming.
	r.flushClientQueue(cl)
}
