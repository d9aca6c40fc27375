package mbuf

// Size bounds, mirroring the C implementation's MBUF_MIN_SIZE/MBUF_MAX_SIZE.
const (
	MinSize     = 512
	MaxSize     = 65536
	DefaultSize = 16384
)

// Chunk is a fixed-capacity contiguous byte region with two cursors: pos
// (the read head) and last (the write head), bounded by start (always 0)
// and end (len(buf)). A Chunk is owned by exactly one Pool at a time; it is
// never shared across connections, though its tail may be handed off to a
// freshly allocated Chunk via Pool.Split.
type Chunk struct {
	buf  []byte
	pos  int
	last int
	next *Chunk
}

// Empty reports whether every byte written to the chunk has already been
// consumed by a reader.
func (c *Chunk) Empty() bool { return c.pos == c.last }

// Full reports whether the chunk has no remaining write capacity.
func (c *Chunk) Full() bool { return c.last == len(c.buf) }

// Len returns the number of unread bytes currently buffered.
func (c *Chunk) Len() int { return c.last - c.pos }

// Cap returns the chunk's total capacity.
func (c *Chunk) Cap() int { return len(c.buf) }

// Avail returns the number of bytes that may still be written before Full.
func (c *Chunk) Avail() int { return len(c.buf) - c.last }

// Unread returns the slice of bytes between pos and last, aliasing the
// chunk's backing array. The returned slice is only valid until the next
// mutation of the chunk (Copy, Rewind, or return to the pool).
func (c *Chunk) Unread() []byte { return c.buf[c.pos:c.last] }

// Advance moves the read cursor forward by n bytes, as if n bytes had been
// consumed by a parser or a writev. It panics if n would move pos past
// last.
func (c *Chunk) Advance(n int) {
	if n < 0 || c.pos+n > c.last {
		panic("mbuf: advance out of range")
	}
	c.pos += n
}

// Rewind resets both cursors to the start of the buffer, discarding any
// buffered content without returning the chunk to the pool.
func (c *Chunk) Rewind() {
	c.pos = 0
	c.last = 0
}

// Copy writes n bytes from src at the current write cursor, advancing it.
// It reports false, leaving the chunk unmodified, if n bytes would not fit
// before end.
func (c *Chunk) Copy(src []byte) bool {
	n := len(src)
	if c.last+n > len(c.buf) {
		return false
	}
	copy(c.buf[c.last:c.last+n], src)
	c.last += n
	return true
}

// Writable returns the unwritten tail of the chunk's backing array, for a
// caller (a raw socket read) that fills it directly rather than through
// Copy. The caller must follow up with CommitWrite naming how much of it it
// actually used.
func (c *Chunk) Writable() []byte { return c.buf[c.last:] }

// CommitWrite advances the write cursor by n, as if n bytes had just been
// written into the slice returned by a prior call to Writable. This is how
// original_source/src/nc_connection.c's conn_recv advances mbuf->last
// directly by the return value of its recv() syscall, rather than copying
// through an intermediate buffer.
func (c *Chunk) CommitWrite(n int) {
	if n < 0 || c.last+n > len(c.buf) {
		panic("mbuf: commit write out of range")
	}
	c.last += n
}

// PosPtr returns the current pos cursor as an index, for callers (the
// parser, primarily) that need to remember a position inside the chunk
// across invocations and later resume from or split at it.
func (c *Chunk) PosPtr() int { return c.pos }

// Next returns the next chunk in whatever Chain currently owns this one, or
// nil if this is the chain's tail.
func (c *Chunk) Next() *Chunk { return c.next }

func (c *Chunk) reset() {
	c.pos = 0
	c.last = 0
	c.next = nil
}
