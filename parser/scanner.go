package parser

import (
	"bytes"

	"github.com/memcshard/memcshard/mbuf"
)

// mergeHeadWithNext folds chain's second chunk into its first, producing one
// contiguous chunk at the head of the chain. It is the REPAIR primitive: the
// only way a parser token is allowed to span chunks is transiently, while
// this merge stitches the bytes back into one slice.
//
// Returns false, without modifying chain, if the combined unread bytes of
// the two chunks would not fit in a single freshly allocated chunk (the
// line is simply too long for the configured chunk size).
func mergeHeadWithNext(chain *mbuf.Chain, pool *mbuf.Pool) bool {
	head := chain.Head()
	next := head.Next()
	if next == nil {
		return false
	}

	merged := pool.Get()
	if !merged.Copy(head.Unread()) || !merged.Copy(next.Unread()) {
		pool.Put(merged)
		return false
	}

	// Detach head and next. Popping twice naturally leaves chain.head
	// pointing at whatever followed next (if anything), since PopFront
	// always re-points head at the popped chunk's successor.
	pool.Put(chain.PopFront()) // head
	pool.Put(chain.PopFront()) // next
	chain.PushFront(merged)
	return true
}

// scanLine finds the next CRLF- or LF-terminated line at the head of chain,
// merging chunks via pool as needed when the line crosses a boundary. It
// returns the line with any trailing \r\n or \n stripped, the total number
// of input bytes the line plus its terminator occupy, and ok=true. If no
// terminator is present even after every currently buffered chunk has been
// merged into one, it returns ok=false (Again). If the merged content would
// never fit in a single chunk, it returns an error.
func scanLine(chain *mbuf.Chain, pool *mbuf.Pool) (line []byte, consumed int, ok bool, err error) {
	for {
		head := chain.Head()
		if head == nil {
			return nil, 0, false, nil
		}
		buf := head.Unread()
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			end := i
			if end > 0 && buf[end-1] == '\r' {
				end--
			}
			line = buf[:end:end]
			return line, i + 1, true, nil
		}
		if head.Next() == nil {
			return nil, 0, false, nil
		}
		if !mergeHeadWithNext(chain, pool) {
			return nil, 0, false, ErrLineTooLong
		}
	}
}

// availableBytes returns the total number of unread bytes buffered across
// every chunk in chain.
func availableBytes(chain *mbuf.Chain) int {
	n := 0
	for c := chain.Head(); c != nil; c = c.Next() {
		n += c.Len()
	}
	return n
}

// readContiguous returns a zero-copy slice of exactly need bytes starting
// at the head of chain, merging chunks as necessary so the slice lies
// within a single chunk. It does not advance chain; callers that accept the
// slice must Advance the consumed chunks themselves. Returns ok=false
// (Again) if fewer than need bytes are currently buffered across the whole
// chain.
func readContiguous(chain *mbuf.Chain, pool *mbuf.Pool, need int) (data []byte, ok bool, err error) {
	if availableBytes(chain) < need {
		return nil, false, nil
	}
	for {
		head := chain.Head()
		if head.Len() >= need {
			buf := head.Unread()
			return buf[:need:need], true, nil
		}
		if !mergeHeadWithNext(chain, pool) {
			return nil, false, ErrLineTooLong
		}
	}
}

// advanceChain consumes n bytes from the front of chain, across as many
// chunks as needed, draining fully-consumed ones back to pool.
func advanceChain(chain *mbuf.Chain, pool *mbuf.Pool, n int) {
	for n > 0 {
		head := chain.Head()
		take := head.Len()
		if take > n {
			take = n
		}
		head.Advance(take)
		n -= take
		chain.DrainEmpty(pool)
	}
}
