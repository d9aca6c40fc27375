package parser

import (
	"bytes"

	"github.com/memcshard/memcshard/mbuf"
	"github.com/memcshard/memcshard/message"
)

// RouteFunc resolves a key to a backend index. The parser calls it while
// scanning a get/gets request's key list to decide, mid-parse, whether the
// request needs to fragment across servers - the same thing nc_parse.c's
// parse_request does by consulting the server pool directly.
type RouteFunc func(key []byte) int

// ParseRequest consumes one complete request from chain, mirroring
// parse_request() in original_source/src/nc_parse.h. route is consulted for
// retrieval commands only; pass nil for contexts that never fragment (e.g.
// a test harness working with a single backend).
func ParseRequest(chain *mbuf.Chain, pool *mbuf.Pool, route RouteFunc) (*message.Message, Result, error) {
	chunksBefore := chain.Len()
	line, consumed, ok, err := scanLine(chain, pool)
	if err != nil {
		return nil, Error, err
	}
	if !ok {
		if chain.Head() != nil && chain.Head().Next() != nil {
			return nil, Repair, nil
		}
		return nil, Again, nil
	}
	if chain.Len() < chunksBefore {
		// scanLine merged the header line's chunks in place; nothing was
		// consumed, so the caller re-enters and parses the merged line.
		return nil, Repair, nil
	}

	fields := splitFields(line)
	if len(fields) == 0 {
		advanceChain(chain, pool, consumed)
		return nil, Error, ErrBadHeader
	}

	t, known := commandTable[string(fields[0])]
	if !known {
		return nil, Error, ErrUnknownCommand
	}

	switch {
	case t.IsRetrieval():
		return parseRetrieval(chain, pool, t, fields, consumed, route)
	case t.IsStorage():
		return parseStorage(chain, pool, t, fields, consumed)
	case t == message.ReqDelete:
		return parseDelete(chain, pool, fields, consumed)
	case t == message.ReqIncr || t == message.ReqDecr:
		return parseIncrDecr(chain, pool, t, fields, consumed)
	case t == message.ReqTouch:
		return parseTouch(chain, pool, fields, consumed)
	case t == message.ReqQuit, t == message.ReqVersion:
		advanceChain(chain, pool, consumed)
		m := message.New(t)
		return m, OK, nil
	case t == message.ReqStats:
		advanceChain(chain, pool, consumed)
		m := message.New(t)
		if len(fields) > 1 {
			m.Keys = append(m.Keys, append([]byte(nil), fields[1]...))
		}
		return m, OK, nil
	default:
		return nil, Error, ErrUnknownCommand
	}
}

func parseRetrieval(chain *mbuf.Chain, pool *mbuf.Pool, t message.Type, fields [][]byte, consumed int, route RouteFunc) (*message.Message, Result, error) {
	if len(fields) < 2 {
		advanceChain(chain, pool, consumed)
		return nil, Error, ErrBadHeader
	}
	m := message.New(t)
	m.Keys = make([]message.Key, 0, len(fields)-1)
	for _, k := range fields[1:] {
		if err := validateKey(k); err != nil {
			advanceChain(chain, pool, consumed)
			return nil, Error, err
		}
		m.Keys = append(m.Keys, append([]byte(nil), k...))
	}
	advanceChain(chain, pool, consumed)

	if route == nil || len(m.Keys) == 1 {
		m.ServerIndex = routeOrZero(route, m.Keys[0])
		return m, OK, nil
	}
	first := route(m.Keys[0])
	frag := false
	for _, k := range m.Keys[1:] {
		if route(k) != first {
			frag = true
			break
		}
	}
	if frag {
		return m, Fragment, nil
	}
	m.ServerIndex = first
	return m, OK, nil
}

func routeOrZero(route RouteFunc, key []byte) int {
	if route == nil {
		return 0
	}
	return route(key)
}

func parseStorage(chain *mbuf.Chain, pool *mbuf.Pool, t message.Type, fields [][]byte, consumed int) (*message.Message, Result, error) {
	minFields := 5
	if t == message.ReqCas {
		minFields = 6
	}
	if len(fields) < minFields {
		advanceChain(chain, pool, consumed)
		return nil, Error, ErrBadHeader
	}
	key := append([]byte(nil), fields[1]...)
	if err := validateKey(key); err != nil {
		advanceChain(chain, pool, consumed)
		return nil, Error, err
	}
	flags, err := parseUint32(fields[2])
	if err != nil {
		advanceChain(chain, pool, consumed)
		return nil, Error, err
	}
	exptime, err := parseUint32(fields[3])
	if err != nil {
		advanceChain(chain, pool, consumed)
		return nil, Error, err
	}
	vlen, err := parseInt(fields[4])
	if err != nil || vlen < 0 {
		advanceChain(chain, pool, consumed)
		return nil, Error, ErrBadHeader
	}
	idx := 5
	var cas uint64
	if t == message.ReqCas {
		cas, err = parseUint64(fields[5])
		if err != nil {
			advanceChain(chain, pool, consumed)
			return nil, Error, err
		}
		idx = 6
	}
	noreply := idx < len(fields) && bytes.Equal(fields[idx], []byte("noreply"))

	// The data block (vlen bytes + trailing CRLF) may not have arrived yet;
	// don't consume the header until we know the whole message is present,
	// so a retry after Again restarts cleanly from the same header line.
	need := vlen + 2
	if availableBytes(chain)-consumed < need {
		return nil, Again, nil
	}

	advanceChain(chain, pool, consumed)
	data, ok, err := readContiguous(chain, pool, need)
	if err != nil {
		return nil, Error, err
	}
	if !ok {
		return nil, Again, nil
	}
	if data[need-2] != '\r' || data[need-1] != '\n' {
		advanceChain(chain, pool, need)
		return nil, Error, ErrBadHeader
	}

	m := message.New(t)
	m.Keys = []message.Key{key}
	m.Flags = flags
	m.Exptime = exptime
	m.CAS = cas
	m.Vlen = vlen
	m.NoReply = noreply
	m.Chain.Append(pool, data)
	advanceChain(chain, pool, need)
	return m, OK, nil
}

func parseDelete(chain *mbuf.Chain, pool *mbuf.Pool, fields [][]byte, consumed int) (*message.Message, Result, error) {
	if len(fields) < 2 {
		advanceChain(chain, pool, consumed)
		return nil, Error, ErrBadHeader
	}
	key := append([]byte(nil), fields[1]...)
	if err := validateKey(key); err != nil {
		advanceChain(chain, pool, consumed)
		return nil, Error, err
	}
	noreply := len(fields) > 2 && bytes.Equal(fields[len(fields)-1], []byte("noreply"))
	advanceChain(chain, pool, consumed)
	m := message.New(message.ReqDelete)
	m.Keys = []message.Key{key}
	m.NoReply = noreply
	return m, OK, nil
}

func parseIncrDecr(chain *mbuf.Chain, pool *mbuf.Pool, t message.Type, fields [][]byte, consumed int) (*message.Message, Result, error) {
	if len(fields) < 3 {
		advanceChain(chain, pool, consumed)
		return nil, Error, ErrBadHeader
	}
	key := append([]byte(nil), fields[1]...)
	if err := validateKey(key); err != nil {
		advanceChain(chain, pool, consumed)
		return nil, Error, err
	}
	delta, err := parseInt64(fields[2])
	if err != nil {
		advanceChain(chain, pool, consumed)
		return nil, Error, err
	}
	noreply := len(fields) > 3 && bytes.Equal(fields[len(fields)-1], []byte("noreply"))
	advanceChain(chain, pool, consumed)
	m := message.New(t)
	m.Keys = []message.Key{key}
	m.Number = delta
	m.NoReply = noreply
	return m, OK, nil
}

func parseTouch(chain *mbuf.Chain, pool *mbuf.Pool, fields [][]byte, consumed int) (*message.Message, Result, error) {
	if len(fields) < 3 {
		advanceChain(chain, pool, consumed)
		return nil, Error, ErrBadHeader
	}
	key := append([]byte(nil), fields[1]...)
	if err := validateKey(key); err != nil {
		advanceChain(chain, pool, consumed)
		return nil, Error, err
	}
	exptime, err := parseUint32(fields[2])
	if err != nil {
		advanceChain(chain, pool, consumed)
		return nil, Error, err
	}
	noreply := len(fields) > 3 && bytes.Equal(fields[len(fields)-1], []byte("noreply"))
	advanceChain(chain, pool, consumed)
	m := message.New(message.ReqTouch)
	m.Keys = []message.Key{key}
	m.Exptime = exptime
	m.NoReply = noreply
	return m, OK, nil
}
