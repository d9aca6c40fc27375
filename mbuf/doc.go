// Package mbuf implements a fixed-size byte chunk allocator with free-list
// reuse, and the singly-linked chain of chunks used to pipeline bytes
// through a connection or message without copying payload data.
//
// A Chunk is the unit of pipelining: bytes move from one Chain to another
// by relinking whole chunks (see Chain.AppendChain), and Pool.Split moves
// the tail of a chunk into a fresh chunk behind a caller-written header.
// The parser copies the keys and values it extracts rather than aliasing
// chunk memory.
package mbuf
