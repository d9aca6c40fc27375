package router

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/memcshard/memcshard/mbuf"
	"github.com/memcshard/memcshard/message"
	"github.com/memcshard/memcshard/parser"
)

// encodeRequestHeader re-synthesizes the wire header line for a parsed
// request, minus any trailing "noreply" token: the proxy always forwards
// a request to its backend as if it expected a real reply, since FIFO
// request/response pairing requires one (see DESIGN.md's noreply
// decision); only the reply sent back to the actual client is gated by
// NoReply.
func encodeRequestHeader(m *message.Message) string {
	switch m.Type {
	case message.ReqGet, message.ReqGets:
		keys := make([]string, len(m.Keys))
		for i, k := range m.Keys {
			keys[i] = string(k)
		}
		return m.Type.String() + " " + strings.Join(keys, " ") + "\r\n"
	case message.ReqSet, message.ReqAdd, message.ReqReplace, message.ReqAppend, message.ReqPrepend:
		return fmt.Sprintf("%s %s %d %d %d\r\n", m.Type, m.Keys[0], m.Flags, m.Exptime, m.Vlen)
	case message.ReqCas:
		return fmt.Sprintf("cas %s %d %d %d %d\r\n", m.Keys[0], m.Flags, m.Exptime, m.Vlen, m.CAS)
	case message.ReqDelete:
		return fmt.Sprintf("delete %s\r\n", m.Keys[0])
	case message.ReqIncr, message.ReqDecr:
		return fmt.Sprintf("%s %s %d\r\n", m.Type, m.Keys[0], m.Number)
	case message.ReqTouch:
		return fmt.Sprintf("touch %s %d\r\n", m.Keys[0], m.Exptime)
	default:
		return ""
	}
}

// forwardMessageBytes writes m's header onto sc.Out, then splices m's own
// payload chain (the value bytes of a storage command, already copied
// once by the parser) onto sc.Out's tail by relinking rather than
// copying, preserving the zero-copy invariant for bulk payload data all
// the way through to the wire.
func forwardMessageBytes(pool *mbuf.Pool, outChain *mbuf.Chain, m *message.Message) {
	header := encodeRequestHeader(m)
	if header != "" {
		outChain.Append(pool, []byte(header))
	}
	outChain.AppendChain(&m.Chain)
}

// writeValues appends one "VALUE <key> <flags> <len> [<cas>]\r\n<data>\r\n"
// block per item to outChain.
func writeValues(pool *mbuf.Pool, outChain *mbuf.Chain, values []message.ValueItem) {
	for _, v := range values {
		header := fmt.Sprintf("VALUE %s %d %d", v.Key, v.Flags, len(v.Data))
		if v.CAS != 0 {
			header += " " + strconv.FormatUint(v.CAS, 10)
		}
		outChain.Append(pool, []byte(header+"\r\n"))
		outChain.Append(pool, v.Data)
		outChain.Append(pool, []byte("\r\n"))
	}
}

// writeSingleLineResponse appends rsp's single-line wire form (a plain
// status line, or the bare integer of an incr/decr reply) to outChain.
func writeSingleLineResponse(pool *mbuf.Pool, outChain *mbuf.Chain, rsp *message.Message) {
	switch rsp.Type {
	case message.RspNumber:
		outChain.Append(pool, []byte(strconv.FormatInt(rsp.Number, 10)+"\r\n"))
	default:
		outChain.Append(pool, []byte(rsp.Type.String()+"\r\n"))
	}
}

// serverErrorReason maps a sentinel error to the fixed reason text
// spec.md's error table and scenario S4 put on the wire after
// "SERVER_ERROR " - never err.Error() itself, which carries the
// internal, package-qualified Go string and would leak implementation
// detail onto the memcached wire.
func serverErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrRequestTimeout):
		return "timeout"
	case errors.Is(err, ErrNoBackend):
		return "no server"
	case errors.Is(err, ErrConnectionReset):
		return "connection reset"
	default:
		return "backend failure"
	}
}

// clientErrorReason maps a sentinel error to the fixed reason text that
// follows "CLIENT_ERROR " on the wire, per scenario S5's literal
// `CLIENT_ERROR key too long`.
func clientErrorReason(err error) string {
	switch {
	case errors.Is(err, parser.ErrKeyTooLong):
		return "key too long"
	case errors.Is(err, parser.ErrUnknownCommand):
		return "unknown command"
	default:
		// ErrEmptyKey, ErrBadKeyChar, ErrBadHeader, ErrLineTooLong, and
		// anything else parser.ParseRequest can return all share
		// memcached's own generic grammar-violation reason.
		return "bad command line format"
	}
}

// writeErrorResponse renders err as a wire-level SERVER_ERROR line, the
// catch-all reply for a request that failed before any backend could
// answer it (routing failure, dial failure, timeout, or a reset backend
// connection). The reason text is a fixed mapping, never err.Error()
// itself.
func writeErrorResponse(pool *mbuf.Pool, outChain *mbuf.Chain, err error) {
	outChain.Append(pool, []byte("SERVER_ERROR "+serverErrorReason(err)+"\r\n"))
}

// writeClientErrorResponse renders err as a wire-level CLIENT_ERROR line,
// per SPEC_FULL.md's error taxonomy for a request that violated the
// protocol grammar or a key constraint - the client's own bytes were at
// fault, not the backend. The reason text is a fixed mapping, never
// err.Error() itself.
func writeClientErrorResponse(pool *mbuf.Pool, outChain *mbuf.Chain, err error) {
	outChain.Append(pool, []byte("CLIENT_ERROR "+clientErrorReason(err)+"\r\n"))
}

// proxyVersion is the literal this proxy reports for a "version" command,
// answered locally rather than forwarded to any backend.
const proxyVersion = "1.0.0"

// writeLocalVersion appends this proxy's own VERSION line, used for the
// version command rather than forwarding it (a backend's own version is
// not a meaningful answer to "what proxy am I talking to").
func writeLocalVersion(pool *mbuf.Pool, outChain *mbuf.Chain) {
	outChain.Append(pool, []byte("VERSION "+proxyVersion+"\r\n"))
}

// writeLocalStats appends a minimal local stats block; the proxy does not
// forward stats to backends since they describe backend-internal state,
// not the proxy's own.
func writeLocalStats(pool *mbuf.Pool, outChain *mbuf.Chain) {
	outChain.Append(pool, []byte("STAT version "+proxyVersion+"\r\nEND\r\n"))
}
