package hashring

import (
	"crypto/md5"
	"hash/crc32"

	"github.com/gxed/hashland/murmur3"
)

// HashFunc computes a 32-bit hash of key, for use by a Distribution to
// place the key on the ring. All hash functions are pluggable black
// boxes from the router's perspective — it only ever calls through this
// type.
type HashFunc func(key []byte) uint32

// Named hash functions selectable per pool, matching the original's
// hash_fn enumeration.
const (
	HashFNV1_64  = "fnv1_64"
	HashFNV1a_64 = "fnv1a_64"
	HashFNV1_32  = "fnv1_32"
	HashFNV1a_32 = "fnv1a_32"
	HashCRC16    = "crc16"
	HashCRC32    = "crc32"
	HashMD5      = "md5"
	HashMurmur3  = "murmur3"
)

// Lookup resolves a hash function by its config name. ok is false for an
// unrecognized name.
func Lookup(name string) (fn HashFunc, ok bool) {
	switch name {
	case HashFNV1_64:
		return FNV1_64, true
	case HashFNV1a_64:
		return FNV1a_64, true
	case HashFNV1_32:
		return FNV1_32, true
	case HashFNV1a_32:
		return FNV1a_32, true
	case HashCRC16:
		return CRC16, true
	case HashCRC32:
		return CRC32, true
	case HashMD5:
		return MD5, true
	case HashMurmur3:
		return Murmur3, true
	default:
		return nil, false
	}
}

// fnv64Init and fnv64Prime are the 64-bit FNV-1 constants, ported verbatim
// from nc_fnv.c rather than golang.org's hash/fnv so the 32-bit-truncated
// 64-bit variants match the original proxy byte for byte.
const (
	fnv64Init  = uint64(0xcbf29ce484222325)
	fnv64Prime = uint64(0x100000001b3)
	fnv32Init  = uint32(2166136261)
	fnv32Prime = uint32(16777619)
)

// FNV1_64 is FNV-1 computed at 64 bits and truncated to 32, as
// hash_fnv1_64 in nc_fnv.c.
func FNV1_64(key []byte) uint32 {
	h := fnv64Init
	for _, b := range key {
		h *= fnv64Prime
		h ^= uint64(b)
	}
	return uint32(h)
}

// FNV1a_64 is FNV-1a computed with 64-bit constants but folded into a
// 32-bit accumulator throughout, as hash_fnv1a_64 in nc_fnv.c (this odd
// mixed-width construction is the original's, preserved for routing
// compatibility rather than "fixed").
func FNV1a_64(key []byte) uint32 {
	h := uint32(fnv64Init)
	for _, b := range key {
		h ^= uint32(b)
		h *= uint32(fnv64Prime)
	}
	return h
}

// FNV1_32 is the classic 32-bit FNV-1, as hash_fnv1_32 in nc_fnv.c.
func FNV1_32(key []byte) uint32 {
	h := fnv32Init
	for _, b := range key {
		h *= fnv32Prime
		h ^= uint32(b)
	}
	return h
}

// FNV1a_32 is the classic 32-bit FNV-1a, as hash_fnv1a_32 in nc_fnv.c.
func FNV1a_32(key []byte) uint32 {
	h := fnv32Init
	for _, b := range key {
		h ^= uint32(b)
		h *= fnv32Prime
	}
	return h
}

// CRC16 implements CRC-16/CCITT-FALSE bit by bit, without a lookup table. Memcached's "crc16"
// proxy hash distribution is not provided by the standard library, so
// this is ported by hand rather than imported.
func CRC16(key []byte) uint32 {
	const poly = 0x1021
	crc := uint16(0xFFFF)
	for _, b := range key {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
	}
	return uint32(crc)
}

// CRC32 uses the standard library's IEEE CRC32, the idiomatic Go choice:
// no third-party CRC32 implementation improves on hash/crc32 and none
// appears anywhere in the retrieved example corpus.
func CRC32(key []byte) uint32 {
	return crc32.ChecksumIEEE(key)
}

// MD5 folds a standard library MD5 digest down to 32 bits by XORing its
// four little-endian words, the same word order ketama itself reads its
// points in (see ketamaPointHash), and a reasonable general-purpose hash_fn.
func MD5(key []byte) uint32 {
	sum := md5.Sum(key)
	var h uint32
	for i := 0; i < 4; i++ {
		w := uint32(sum[i*4]) | uint32(sum[i*4+1])<<8 | uint32(sum[i*4+2])<<16 | uint32(sum[i*4+3])<<24
		h ^= w
	}
	return h
}

// Murmur3 uses github.com/gxed/hashland/murmur3 (32-bit variant), a real
// dependency confirmed in the retrieved corpus (vendored by
// ethereum-go-ethereum).
func Murmur3(key []byte) uint32 {
	return murmur3.Sum32(key)
}
