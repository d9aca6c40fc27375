package parser

import (
	"bytes"

	"github.com/memcshard/memcshard/mbuf"
	"github.com/memcshard/memcshard/message"
)

var responseTable = map[string]message.Type{
	"STORED":       message.RspStored,
	"NOT_STORED":   message.RspNotStored,
	"EXISTS":       message.RspExists,
	"NOT_FOUND":    message.RspNotFound,
	"DELETED":      message.RspDeleted,
	"TOUCHED":      message.RspTouched,
	"VERSION":      message.RspVersion,
	"ERROR":        message.RspError,
	"CLIENT_ERROR": message.RspClientError,
	"SERVER_ERROR": message.RspServerError,
}

// Decoder holds the state a response parse needs to survive across an
// Again return: a retrieval response is a run of "VALUE ..." blocks that
// can arrive over several socket reads, and the ValueItems already decoded
// from earlier blocks must not be discarded just because a later block is
// still incomplete. Non-retrieval (single-line) responses need no such
// state, since they never split a partial parse across calls.
//
// A Decoder is owned by one server connection for the lifetime of that
// connection, mirroring how the per-connection msg being assembled is
// tracked in original_source/src/nc_memcache.c.
type Decoder struct {
	partial *message.Message
}

// ParseResponse consumes one complete response from a server connection's
// input chain, mirroring parse_response(). A retrieval response is a run of
// zero or more "VALUE ..." blocks terminated by a lone "END" line; every
// other reply is a single line (optionally, for incr/decr, a bare integer).
func (d *Decoder) ParseResponse(chain *mbuf.Chain, pool *mbuf.Pool) (*message.Message, Result, error) {
	if d.partial != nil {
		return d.continueRetrievalResponse(chain, pool)
	}

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

	fields := splitFields(line)
	if len(fields) == 0 {
		advanceChain(chain, pool, consumed)
		return nil, Error, ErrBadResponse
	}

	verb := string(fields[0])
	switch verb {
	case "VALUE", "END":
		d.partial = message.New(message.RspEnd)
		return d.continueRetrievalResponse(chain, pool)
	}

	if t, known := responseTable[verb]; known {
		advanceChain(chain, pool, consumed)
		m := message.New(t)
		return m, OK, nil
	}

	if n, numErr := parseInt64(fields[0]); numErr == nil && len(fields) == 1 {
		advanceChain(chain, pool, consumed)
		m := message.New(message.RspNumber)
		m.Number = n
		return m, OK, nil
	}

	advanceChain(chain, pool, consumed)
	return nil, Error, ErrBadResponse
}

// continueRetrievalResponse resumes (or starts) scanning a VALUE...END run
// into d.partial, which it clears once the run terminates in OK or Error so
// the next ParseResponse call starts fresh.
func (d *Decoder) continueRetrievalResponse(chain *mbuf.Chain, pool *mbuf.Pool) (*message.Message, Result, error) {
	m := d.partial
	for {
		line, consumed, ok, err := scanLine(chain, pool)
		if err != nil {
			d.partial = nil
			return nil, Error, err
		}
		if !ok {
			if chain.Head() != nil && chain.Head().Next() != nil {
				return nil, Repair, nil
			}
			return nil, Again, nil
		}

		fields := splitFields(line)
		if len(fields) == 0 {
			advanceChain(chain, pool, consumed)
			d.partial = nil
			return nil, Error, ErrBadResponse
		}

		if bytes.Equal(fields[0], []byte("END")) {
			advanceChain(chain, pool, consumed)
			d.partial = nil
			return m, OK, nil
		}

		if !bytes.Equal(fields[0], []byte("VALUE")) {
			advanceChain(chain, pool, consumed)
			d.partial = nil
			return nil, Error, ErrBadResponse
		}
		if len(fields) < 4 {
			advanceChain(chain, pool, consumed)
			d.partial = nil
			return nil, Error, ErrBadHeader
		}
		key := append([]byte(nil), fields[1]...)
		flags, err := parseUint32(fields[2])
		if err != nil {
			advanceChain(chain, pool, consumed)
			d.partial = nil
			return nil, Error, err
		}
		vlen, err := parseInt(fields[3])
		if err != nil || vlen < 0 {
			advanceChain(chain, pool, consumed)
			d.partial = nil
			return nil, Error, ErrBadHeader
		}
		var cas uint64
		if len(fields) >= 5 {
			cas, err = parseUint64(fields[4])
			if err != nil {
				advanceChain(chain, pool, consumed)
				d.partial = nil
				return nil, Error, err
			}
		}

		need := vlen + 2
		if availableBytes(chain)-consumed < need {
			// The VALUE header is parsed but its body hasn't fully arrived;
			// leave consumed bytes untouched and d.partial set so the retry
			// re-parses this same header rather than losing the values
			// already folded into m.
			return nil, Again, nil
		}
		advanceChain(chain, pool, consumed)
		data, ok, err := readContiguous(chain, pool, need)
		if err != nil {
			d.partial = nil
			return nil, Error, err
		}
		if !ok {
			return nil, Again, nil
		}
		if data[need-2] != '\r' || data[need-1] != '\n' {
			advanceChain(chain, pool, need)
			d.partial = nil
			return nil, Error, ErrBadResponse
		}

		payload := append([]byte(nil), data[:vlen]...)
		m.Values = append(m.Values, message.ValueItem{Key: key, Flags: flags, CAS: cas, Data: payload})
		advanceChain(chain, pool, need)
	}
}
