package hashring

import (
	"crypto/md5"
	"fmt"
)

// ketamaDigest computes the MD5 digest of "name-k", the per-point input
// the classic ketama algorithm hashes to place four points on the ring at
// once.
func ketamaDigest(name string, k int) [16]byte {
	return md5.Sum([]byte(fmt.Sprintf("%s-%d", name, k)))
}

// ketamaPointHash extracts the i-th (0..3) 32-bit little-endian word from
// a ketama digest as that point's ring position.
func ketamaPointHash(digest [16]byte, i int) uint32 {
	b := digest[i*4 : i*4+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
