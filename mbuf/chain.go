package mbuf

// Chain is a singly-linked FIFO of chunks attached to a connection
// direction or a message. Chunks move between chains by relinking (see
// AppendChain) rather than by copying; the parser, by contrast, copies the
// fields it extracts out of a Chain's chunks instead of referencing them
// in place.
type Chain struct {
	head *Chunk
	tail *Chunk
	n    int // number of chunks currently linked
}

// Empty reports whether the chain holds no chunks at all.
func (ch *Chain) Empty() bool { return ch.head == nil }

// Len returns the number of chunks currently linked into the chain.
func (ch *Chain) Len() int { return ch.n }

// Head returns the first chunk in the chain, or nil.
func (ch *Chain) Head() *Chunk { return ch.head }

// Tail returns the last chunk in the chain, or nil.
func (ch *Chain) Tail() *Chunk { return ch.tail }

// PushFront inserts c as the new head of the chain. Used by the parser's
// REPAIR path to splice a freshly merged chunk back in where two or more
// chunks used to be.
func (ch *Chain) PushFront(c *Chunk) {
	c.next = ch.head
	ch.head = c
	if ch.tail == nil {
		ch.tail = c
	}
	ch.n++
}

// PushBack appends c to the end of the chain.
func (ch *Chain) PushBack(c *Chunk) {
	c.next = nil
	if ch.tail == nil {
		ch.head = c
		ch.tail = c
	} else {
		ch.tail.next = c
		ch.tail = c
	}
	ch.n++
}

// PopFront removes and returns the first chunk of the chain, or nil if the
// chain is empty. Callers are expected to return a fully-drained chunk to
// the Pool it came from.
func (ch *Chain) PopFront() *Chunk {
	c := ch.head
	if c == nil {
		return nil
	}
	ch.head = c.next
	if ch.head == nil {
		ch.tail = nil
	}
	c.next = nil
	ch.n--
	return c
}

// LastWritable returns the tail chunk if it has spare write capacity, or
// nil if the chain is empty or its tail is full.
func (ch *Chain) LastWritable() *Chunk {
	if ch.tail == nil || ch.tail.Full() {
		return nil
	}
	return ch.tail
}

// Append writes b into the chain, reusing the tail chunk's free space
// first and pulling additional chunks from pool as needed. It never fails:
// a chain can always grow by allocating more chunks.
func (ch *Chain) Append(pool *Pool, b []byte) {
	for len(b) > 0 {
		c := ch.LastWritable()
		if c == nil {
			c = pool.Get()
			ch.PushBack(c)
		}
		n := c.Avail()
		if n > len(b) {
			n = len(b)
		}
		c.Copy(b[:n])
		b = b[n:]
	}
}

// AppendChain relinks every chunk of src onto the tail of ch, emptying
// src in the process. Used to hand a message's own payload chain off to
// a connection's output chain with no copying, when forwarding a request
// or a reply verbatim.
func (ch *Chain) AppendChain(src *Chain) {
	for {
		c := src.PopFront()
		if c == nil {
			break
		}
		ch.PushBack(c)
	}
}

// DrainEmpty returns any fully-consumed leading chunks to pool. It is
// called after a reader has advanced pos across one or more chunks (e.g.
// after a parser consumes a full request, or after a partial writev).
func (ch *Chain) DrainEmpty(pool *Pool) {
	for ch.head != nil && ch.head.Empty() && ch.head != ch.tail {
		c := ch.PopFront()
		pool.Put(c)
	}
	// A lone empty head chunk (head == tail) is kept around rather than
	// freed, since the connection will likely write into it again next
	// tick; Rewind reclaims its space instead of churning the pool.
	if ch.head != nil && ch.head == ch.tail && ch.head.Empty() {
		ch.head.Rewind()
	}
}

// Release returns every chunk in the chain to pool and empties the chain.
// Used when tearing down a connection or discarding an orphaned message.
func (ch *Chain) Release(pool *Pool) {
	for {
		c := ch.PopFront()
		if c == nil {
			break
		}
		pool.Put(c)
	}
}

// Bytes copies out the full unread contents of the chain as a single
// slice. It is intended for tests and small diagnostic dumps, not the hot
// path (which should operate on Chunk.Unread() slices directly to remain
// zero-copy).
func (ch *Chain) Bytes() []byte {
	out := make([]byte, 0, ch.n*DefaultSize)
	for c := ch.head; c != nil; c = c.Next() {
		out = append(out, c.Unread()...)
	}
	return out
}
