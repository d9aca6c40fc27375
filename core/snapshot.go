package core

// ServerSnapshot is one backend's counters as of the moment Snapshot was
// taken, mirroring the leaf of original_source's nc_introspect.h
// pool→server→connection dump.
type ServerSnapshot struct {
	Name         string
	Addr         string
	Connections  int
	FailureCount int
	Ejected      bool
}

// PoolSnapshot is one configured pool's backend table as of the moment
// Snapshot was taken.
type PoolSnapshot struct {
	Name    string
	Servers []ServerSnapshot
}

// Snapshot is the full read-only pool→server→connection traversal
// SPEC_FULL.md's §6 supplement names: every attached pool, and every
// backend within it, with its live connection count and failure/ejection
// state.
type Snapshot struct {
	Pools []PoolSnapshot
}

// Snapshot walks every attached pool's backend table and returns a
// point-in-time copy of its counters. Per SPEC_FULL.md's concurrency
// model, this must only be called from the loop goroutine - from inside
// Run itself, or from a callback Run dispatches - since it reads the same
// fields the router/serverpool mutate without any lock, relying entirely
// on single-threaded discipline for safety.
func (ctx *Context) Snapshot() Snapshot {
	now := ctx.EventBase.Now()
	snap := Snapshot{Pools: make([]PoolSnapshot, 0, len(ctx.pools))}
	for _, pc := range ctx.pools {
		ps := PoolSnapshot{Name: pc.Name, Servers: make([]ServerSnapshot, 0, len(pc.Servers.Backends))}
		for _, b := range pc.Servers.Backends {
			conns := 0
			for _, c := range b.Conns {
				if c != nil && !c.Closed() {
					conns++
				}
			}
			ps.Servers = append(ps.Servers, ServerSnapshot{
				Name:         b.Name,
				Addr:         b.Addr,
				Connections:  conns,
				FailureCount: b.FailureCount,
				Ejected:      b.Ejected(now),
			})
		}
		snap.Pools = append(snap.Pools, ps)
	}
	return snap
}
