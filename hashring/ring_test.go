package hashring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func membersN(n int) []Member {
	m := make([]Member, n)
	for i := range m {
		m[i] = Member{Index: i, Name: fmt.Sprintf("10.0.0.%d:11211", i), Weight: 1}
	}
	return m
}

func TestRing_Modula_DistributesAcrossMembers(t *testing.T) {
	r := NewRing(Modula, FNV1a_32)
	r.Build(membersN(4))

	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		idx, ok := r.Lookup([]byte(fmt.Sprintf("key-%d", i)))
		require.True(t, ok)
		seen[idx] = true
	}
	assert.Len(t, seen, 4, "expected all 4 servers to receive some keys")
}

func TestRing_Ketama_DeterministicAndCoversAllMembers(t *testing.T) {
	r := NewRing(Ketama, FNV1a_32)
	r.Build(membersN(5))
	assert.Equal(t, 5, r.NumMembers())

	idx1, ok := r.Lookup([]byte("somekey"))
	require.True(t, ok)
	idx2, _ := r.Lookup([]byte("somekey"))
	assert.Equal(t, idx1, idx2, "lookup must be deterministic between rebuilds")

	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		idx, _ := r.Lookup([]byte(fmt.Sprintf("k%d", i)))
		seen[idx] = true
	}
	assert.Len(t, seen, 5)
}

// TestRing_Ketama_StableUnderRemoval exercises testable property 3: removing
// one of N servers relocates only the keys that were mapped to it (modulo a
// small tie-break epsilon), and the rest keep their original server.
func TestRing_Ketama_StableUnderRemoval(t *testing.T) {
	const n = 8
	const numKeys = 2000

	full := NewRing(Ketama, FNV1a_32)
	full.Build(membersN(n))

	before := make(map[string]int, numKeys)
	keys := make([]string, numKeys)
	for i := 0; i < numKeys; i++ {
		k := fmt.Sprintf("key-%06d", i)
		keys[i] = k
		idx, _ := full.Lookup([]byte(k))
		before[k] = idx
	}

	removed := membersN(n)[:n-1] // drop the last server
	reduced := NewRing(Ketama, FNV1a_32)
	reduced.Build(removed)

	relocated := 0
	for _, k := range keys {
		idx, ok := reduced.Lookup([]byte(k))
		require.True(t, ok)
		if idx != before[k] {
			relocated++
			assert.Equal(t, n-1, before[k], "only keys previously on the removed server should relocate")
		}
	}

	maxExpected := numKeys/n + numKeys/10 + 1 // ceil(keys/N) plus tie-break slack
	assert.LessOrEqual(t, relocated, maxExpected,
		"removing 1 of %d servers should relocate roughly keys/%d keys, got %d", n, n, relocated)
}

func TestRing_EmptyLookupNotOK(t *testing.T) {
	r := NewRing(Ketama, FNV1a_32)
	_, ok := r.Lookup([]byte("x"))
	assert.False(t, ok)

	m := NewRing(Modula, FNV1a_32)
	_, ok = m.Lookup([]byte("x"))
	assert.False(t, ok)
}

func TestRing_Ketama_WeightIncreasesShare(t *testing.T) {
	members := []Member{
		{Index: 0, Name: "a", Weight: 1},
		{Index: 1, Name: "b", Weight: 10},
	}
	r := NewRing(Ketama, FNV1a_32)
	r.Build(members)

	counts := map[int]int{}
	for i := 0; i < 4000; i++ {
		idx, _ := r.Lookup([]byte(fmt.Sprintf("w%d", i)))
		counts[idx]++
	}
	assert.Greater(t, counts[1], counts[0], "higher weight server should receive more keys")
}
