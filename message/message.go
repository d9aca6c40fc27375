package message

import (
	"sync/atomic"

	"github.com/memcshard/memcshard/evloop"
	"github.com/memcshard/memcshard/mbuf"
)

// Type tags the memcached command or response grammar a Message
// represents.
type Type int

const (
	TypeUnknown Type = iota

	// Requests.
	ReqGet
	ReqGets
	ReqSet
	ReqAdd
	ReqReplace
	ReqAppend
	ReqPrepend
	ReqCas
	ReqDelete
	ReqIncr
	ReqDecr
	ReqTouch
	ReqQuit
	ReqVersion
	ReqStats

	// Responses.
	RspValue
	RspEnd
	RspStored
	RspNotStored
	RspExists
	RspNotFound
	RspDeleted
	RspTouched
	RspNumber
	RspVersion
	RspError
	RspClientError
	RspServerError
)

// IsRequest reports whether t is one of the request types.
func (t Type) IsRequest() bool { return t >= ReqGet && t <= ReqStats }

// IsRetrieval reports whether t is a multi-key retrieval command (get/gets),
// the only commands that can fragment across servers.
func (t Type) IsRetrieval() bool { return t == ReqGet || t == ReqGets }

// IsStorage reports whether t carries a value payload on the wire (a
// data-bearing request, following a <cmd> line with exactly vlen bytes
// plus trailing CRLF).
func (t Type) IsStorage() bool {
	switch t {
	case ReqSet, ReqAdd, ReqReplace, ReqAppend, ReqPrepend, ReqCas:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	switch t {
	case ReqGet:
		return "get"
	case ReqGets:
		return "gets"
	case ReqSet:
		return "set"
	case ReqAdd:
		return "add"
	case ReqReplace:
		return "replace"
	case ReqAppend:
		return "append"
	case ReqPrepend:
		return "prepend"
	case ReqCas:
		return "cas"
	case ReqDelete:
		return "delete"
	case ReqIncr:
		return "incr"
	case ReqDecr:
		return "decr"
	case ReqTouch:
		return "touch"
	case ReqQuit:
		return "quit"
	case ReqVersion:
		return "version"
	case ReqStats:
		return "stats"
	case RspValue:
		return "VALUE"
	case RspEnd:
		return "END"
	case RspStored:
		return "STORED"
	case RspNotStored:
		return "NOT_STORED"
	case RspExists:
		return "EXISTS"
	case RspNotFound:
		return "NOT_FOUND"
	case RspDeleted:
		return "DELETED"
	case RspTouched:
		return "TOUCHED"
	case RspNumber:
		return "<number>"
	case RspVersion:
		return "VERSION"
	case RspError:
		return "ERROR"
	case RspClientError:
		return "CLIENT_ERROR"
	case RspServerError:
		return "SERVER_ERROR"
	default:
		return "unknown"
	}
}

var nextID atomic.Uint64

// NextID assigns a monotonically increasing message identifier, used for
// log correlation and diagnostics only: queues hold *Message pointers, so
// nothing looks a message up by its id.
func NextID() uint64 { return nextID.Add(1) }

// Key is a key's bytes. The parser copies each key out of its input chunk,
// so a Key does not alias chain storage and stays valid after that chunk
// has gone back to the pool.
type Key = []byte

// ValueItem is one "VALUE <key> <flags> <len> [<cas>]\r\n<data>\r\n" block
// of a retrieval response. A get/gets response carries one ValueItem per
// key that was found (misses produce no entry), terminated by a single
// trailing END line represented by the enclosing Message's Type rather
// than by an entry of its own.
type ValueItem struct {
	Key   Key
	Flags uint32
	CAS   uint64
	Data  []byte
}

// Message is a parsed request or response. It owns its bytes: keys, VALUE
// data and a storage request's payload are copies made by the parser, not
// slices into a connection's input chunks.
type Message struct {
	ID   uint64
	Type Type

	// Keys holds one entry for most commands, and one entry per requested
	// key for get/gets (before any fragmentation decision is made).
	Keys []Key

	Flags   uint32
	Exptime uint32
	CAS     uint64
	Vlen    int
	Number  int64 // incr/decr reply value

	// Values holds the parsed VALUE blocks of a retrieval response
	// (RspValue/RspEnd typed messages). Unused by requests and by
	// single-line responses, which carry their outcome in Type (and Number).
	Values []ValueItem

	// Chain carries a storage request's value payload (vlen bytes plus the
	// trailing CRLF), copied out of the input chain by the parser. The
	// header line is not kept here: the router re-encodes it from the
	// parsed fields. Responses leave Chain empty; the router renders their
	// reply from Type, Number and Values.
	Chain mbuf.Chain

	// Peer is the paired request (from a response) or response (from a
	// request), set once the router resolves the pairing.
	Peer *Message

	// Parent is non-nil on a fragment: the original multi-key request it
	// was split from. Nil on a non-fragment message.
	Parent *Message

	// Fragments holds the per-server sub-messages spawned from this
	// message, when it required fragmenting. Empty otherwise.
	Fragments []*Message

	// Outstanding counts fragments whose response has not yet been paired
	// and folded into this message's output. Meaningful only when
	// len(Fragments) > 0; the parent is complete once it reaches zero.
	Outstanding int

	// FragmentFailures counts how many of this message's fragments failed
	// (backend error, ejection, or a timed-out server connection) rather
	// than completing with a real response. The router uses
	// FragmentFailures == len(Fragments) (and the pool's AutoEjectHosts
	// setting) to decide the whole fan-out should resolve to a single
	// SERVER_ERROR instead of a partial
	// result.
	FragmentFailures int

	// Timer is the pending request-timeout armed against this message
	// when it was forwarded to a backend; canceled once a response
	// arrives. Nil for messages that were never forwarded (local
	// commands) or whose timer already fired/was canceled.
	Timer *evloop.Timer

	// ServerIndex identifies which backend this message (or fragment) was
	// forwarded to, once the router has made that decision.
	ServerIndex int

	// Err holds a parse or forwarding error associated with this message.
	Err error

	// Orphaned marks a request whose client connection closed while it was
	// still in flight: its response is still drained from the server (to
	// preserve FIFO pairing with later requests) but discarded rather than
	// written anywhere.
	Orphaned bool

	// Swallow marks a response this message generated that should not be
	// written to any client (e.g. the synthetic response for an already
	// discarded parent).
	Swallow bool

	// Owner correlates a top-level (non-fragment) message with whatever
	// connection must receive its assembled reply, mirroring
	// original_source's struct msg's own `owner` pointer back to its
	// conn. It is typed any rather than a concrete connection type solely
	// to avoid an import cycle (package conn already depends on package
	// message for its Forwarded queues); package router is the only
	// place that type-asserts it back.
	Owner any

	// NoReply records a parsed trailing "noreply" token on a storage,
	// delete, incr/decr, or touch request. The proxy still pairs it with a
	// server response internally (the FIFO model requires a 1:1 reply per
	// forwarded request); NoReply only governs whether that reply is
	// written back to the client.
	NoReply bool
}

// New allocates a fresh Message with a unique id and the given type.
func New(t Type) *Message {
	return &Message{ID: NextID(), Type: t, ServerIndex: -1}
}

// IsFragment reports whether m was split out of a parent multi-key
// request.
func (m *Message) IsFragment() bool { return m.Parent != nil }

// IsFragmented reports whether m itself was split into per-server
// fragments.
func (m *Message) IsFragmented() bool { return len(m.Fragments) > 0 }

// Complete reports whether every fragment of a fragmented message has had
// its response paired (Outstanding has reached zero). For a
// non-fragmented message this is always true.
func (m *Message) Complete() bool { return m.Outstanding <= 0 }

// Release returns this message's chain to pool. Call once the message has
// been fully forwarded/written and is no longer referenced by any queue.
func (m *Message) Release(pool *mbuf.Pool) {
	m.Chain.Release(pool)
}
