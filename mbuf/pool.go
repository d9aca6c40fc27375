package mbuf

// Pool is a fixed-size chunk allocator with free-list reuse. It is not
// goroutine-safe by design: the proxy's event loop is single-threaded, and
// a Pool is meant to be owned by exactly one Context (see the core
// package), so there is nothing to synchronize.
//
// The free list is a singly-linked stack, as described by the C
// implementation this is ported from (nc_mbuf.c): Get pops or allocates,
// Put pushes or frees. A soft cap (MaxFree) bounds how many chunks the
// free list retains; chunks returned beyond the cap are simply dropped for
// the garbage collector to reclaim.
type Pool struct {
	chunkSize int
	maxFree   int

	free    *Chunk
	nfree   int
	nalloc  int // lifetime allocation count, for introspection
	ngotten int // lifetime Get count
	nput    int // lifetime Put count
}

// DefaultMaxFree is the default soft cap on the number of chunks retained
// on the free list.
const DefaultMaxFree = 4096

// NewPool creates a chunk Pool whose chunks have the given capacity
// (clamped to [MinSize, MaxSize], defaulting to DefaultSize for chunkSize
// <= 0) and whose free list is capped at maxFree entries (DefaultMaxFree
// if maxFree <= 0).
func NewPool(chunkSize, maxFree int) *Pool {
	if chunkSize <= 0 {
		chunkSize = DefaultSize
	}
	if chunkSize < MinSize {
		chunkSize = MinSize
	}
	if chunkSize > MaxSize {
		chunkSize = MaxSize
	}
	if maxFree <= 0 {
		maxFree = DefaultMaxFree
	}
	return &Pool{chunkSize: chunkSize, maxFree: maxFree}
}

// ChunkSize returns the fixed capacity of chunks vended by this pool.
func (p *Pool) ChunkSize() int { return p.chunkSize }

// Get pops a chunk from the free list, or allocates a new one if the free
// list is empty.
func (p *Pool) Get() *Chunk {
	p.ngotten++
	if c := p.free; c != nil {
		p.free = c.next
		p.nfree--
		c.reset()
		return c
	}
	p.nalloc++
	return &Chunk{buf: make([]byte, p.chunkSize)}
}

// Put resets the chunk's cursors and, if the free list is below its soft
// cap, pushes it onto the free list for reuse. Beyond the cap, the chunk
// is dropped.
func (p *Pool) Put(c *Chunk) {
	p.nput++
	c.reset()
	if p.nfree >= p.maxFree {
		return
	}
	c.next = p.free
	p.free = c
	p.nfree++
}

// Stats returns lifetime allocation/reuse counters, for introspection.
func (p *Pool) Stats() (allocated, gotten, put, free int) {
	return p.nalloc, p.ngotten, p.nput, p.nfree
}

// Split takes a position inside a chunk belonging to chain (identified by
// the chunk and an offset previously obtained from Chunk.PosPtr or a byte
// count into Unread()), produces a new chunk from the pool containing the
// bytes from that position to last, truncates the original chunk so its
// last becomes that position, and invokes prepend (if non-nil) on the new
// chunk so the caller can write a synthesized header before the copied
// payload bytes.
//
// The tail bytes are copied once into the new chunk; no other chunk of the
// chain is touched. The router does not use Split: it fans a multi-key get
// out by encoding a fresh request header per backend.
func (p *Pool) Split(c *Chunk, at int, prepend func(*Chunk)) *Chunk {
	if at < c.pos || at > c.last {
		panic("mbuf: split position out of range")
	}
	tail := c.buf[at:c.last]

	nc := p.Get()
	if prepend != nil {
		prepend(nc)
	}
	if !nc.Copy(tail) {
		// Tail payload (plus any prepended header) didn't fit in a single
		// fresh chunk; this only happens for pathological oversize values
		// relative to chunk size, which the parser guards against upstream.
		panic("mbuf: split tail exceeds chunk capacity")
	}

	c.last = at
	return nc
}
