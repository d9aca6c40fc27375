package hashring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFNV1a32_KnownVector pins the 32-bit FNV-1a implementation against
// the well-known hash of the empty string and of "a", independent of the
// ring logic built on top of it.
func TestFNV1a32_KnownVector(t *testing.T) {
	assert.Equal(t, uint32(2166136261), FNV1a_32(nil))
	assert.Equal(t, uint32(0xe40c292c), FNV1a_32([]byte("a")))
}

func TestFNV1_32_KnownVector(t *testing.T) {
	assert.Equal(t, uint32(2166136261), FNV1_32(nil))
	assert.Equal(t, uint32(0x050c5d7e), FNV1_32([]byte("a")))
}

func TestCRC32_MatchesStdlib(t *testing.T) {
	assert.Equal(t, uint32(0x3610a686), CRC32([]byte("hello")))
}

func TestLookup_UnknownNameNotOK(t *testing.T) {
	_, ok := Lookup("does-not-exist")
	assert.False(t, ok)
}

func TestLookup_AllNamedFunctionsResolve(t *testing.T) {
	for _, name := range []string{HashFNV1_64, HashFNV1a_64, HashFNV1_32, HashFNV1a_32, HashCRC16, HashCRC32, HashMD5, HashMurmur3} {
		fn, ok := Lookup(name)
		assert.True(t, ok, name)
		assert.NotPanics(t, func() { fn([]byte("somekey")) }, name)
	}
}

func TestCRC16_Deterministic(t *testing.T) {
	a := CRC16([]byte("foo"))
	b := CRC16([]byte("foo"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, CRC16([]byte("bar")))
}
