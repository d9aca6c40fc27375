package hashring

import (
	"errors"
	"sort"

	"github.com/memcshard/memcshard/varray"
)

// Distribution selects which algorithm a Ring uses to map a hash to a
// server.
type Distribution int

const (
	// Ketama constructs 160 virtual points per weighted unit per live
	// server, and is stable under server removal/addition: only the keys
	// that mapped to the changed server's points relocate.
	Ketama Distribution = iota
	// Modula maps hash mod live-server-count directly to a server index.
	// It is cheap to rebuild but not stable: removing any server
	// reshuffles most keys.
	Modula
)

// PointsPerWeight is the number of ketama virtual points generated per
// weight unit per server, matching the original's fixed 160.
const PointsPerWeight = 160

// ErrEmptyRing is returned by Lookup when the ring has no live servers.
var ErrEmptyRing = errors.New("hashring: no servers in ring")

// Member describes one live server to be placed on the ring. Index is the
// server's stable identifier within the owning pool (what Lookup
// eventually returns); Name and Weight feed the ketama digest and point
// count respectively.
type Member struct {
	Index  int
	Name   string // e.g. "host:port" or a configured alias
	Weight int
}

type point struct {
	hash  uint32
	index int
}

// Ring maps key hashes to server indices via either ketama or modula, per
// the Distribution it was constructed with. It is rebuilt wholesale on
// every membership change (see Build); lookups between rebuilds are
// read-only and touch no shared mutable state, so Ring is safe for use
// from the single event-loop goroutine without any locking.
type Ring struct {
	dist    Distribution
	hashFn  HashFunc
	points  *varray.Array[point] // ketama continuum, sorted by hash
	members []int                // modula: live index at position i == i-th server
}

// NewRing constructs an empty Ring for the given distribution and hash
// function. Call Build before any Lookup.
func NewRing(dist Distribution, hashFn HashFunc) *Ring {
	return &Ring{
		dist:   dist,
		hashFn: hashFn,
		points: varray.New[point](PointsPerWeight * 8),
	}
}

// Build (re)constructs the ring over the given live members, replacing
// whatever continuum or modulus table previously existed. It is called
// once at pool creation and again any time the live server set changes
// (ejection, recovery).
func (r *Ring) Build(members []Member) {
	switch r.dist {
	case Modula:
		r.members = r.members[:0]
		for _, m := range members {
			r.members = append(r.members, m.Index)
		}
	default: // Ketama
		fresh := varray.New[point](PointsPerWeight * 4 * len(members))
		for _, m := range members {
			w := m.Weight
			if w <= 0 {
				w = 1
			}
			r.addKetamaPoints(fresh, m, w)
		}
		fresh.Sort(func(a, b point) bool { return a.hash < b.hash })
		r.points.Swap(fresh)
	}
}

// addKetamaPoints generates PointsPerWeight*weight points for member,
// four at a time from successive MD5 digests of "name-k", matching the
// classic ketama construction (and the original implementation's use of
// MD5 for continuum points).
func (r *Ring) addKetamaPoints(into *varray.Array[point], m Member, weight int) {
	total := PointsPerWeight * weight
	rounds := (total + 3) / 4
	for k := 0; k < rounds; k++ {
		digest := ketamaDigest(m.Name, k)
		for i := 0; i < 4 && k*4+i < total; i++ {
			*into.Push() = point{
				hash:  ketamaPointHash(digest, i),
				index: m.Index,
			}
		}
	}
}

// Lookup resolves key to a live server index. ok is false only when the
// ring has no members at all (ErrEmptyRing-equivalent fast path for
// callers that prefer a bool over an error).
func (r *Ring) Lookup(key []byte) (serverIndex int, ok bool) {
	h := r.hashFn(key)
	return r.LookupHash(h)
}

// LookupHash is Lookup for a pre-computed hash, used by the router when
// it already hashed the key once (e.g. to decide whether a multi-get
// needs fragmenting) and does not want to hash it twice.
func (r *Ring) LookupHash(h uint32) (serverIndex int, ok bool) {
	switch r.dist {
	case Modula:
		if len(r.members) == 0 {
			return 0, false
		}
		return r.members[int(h%uint32(len(r.members)))], true
	default: // Ketama
		pts := r.points.Slice()
		if len(pts) == 0 {
			return 0, false
		}
		i := sort.Search(len(pts), func(i int) bool { return pts[i].hash >= h })
		if i == len(pts) {
			i = 0 // wrap around
		}
		return pts[i].index, true
	}
}

// NumMembers reports how many distinct servers currently participate in
// the ring (not the number of ketama points).
func (r *Ring) NumMembers() int {
	switch r.dist {
	case Modula:
		return len(r.members)
	default:
		seen := make(map[int]struct{})
		for _, p := range r.points.Slice() {
			seen[p.index] = struct{}{}
		}
		return len(seen)
	}
}
