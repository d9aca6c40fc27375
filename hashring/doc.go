// Package hashring implements the consistent-hash routing layer: pluggable
// key hash functions (ported from original_source/src/hashkit/nc_fnv.c,
// plus CRC16/CRC32/MD5/Murmur3 options) and two key-to-server
// distributions, ketama (stable under membership changes) and modula
// (fast, not stable).
//
// A Ring is rebuilt whenever the live server set changes — on ejection, on
// recovery, or on initial pool construction — and is otherwise a read-only
// structure consulted once per request by the router.
package hashring
