package serverpool

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/memcshard/memcshard/conn"
	"github.com/memcshard/memcshard/hashring"
	"github.com/memcshard/memcshard/mbuf"
)

// ServerSpec describes one configured backend before it is resolved into a
// Backend, mirroring a pool's server list entry
// ("host:port:weight[:name]") from SPEC_FULL.md's Server pool data model.
type ServerSpec struct {
	Host   string
	Port   int
	Weight int
	Name   string // defaults to "host:port" if empty
}

// Config configures a Pool. Zero values for the tunables fall back to the
// defaults noted per field.
type Config struct {
	Servers      []ServerSpec
	HashFunc     hashring.HashFunc  // default hashring.FNV1a_64
	Distribution hashring.Distribution // default hashring.Ketama

	// AutoEjectHosts mirrors auto_eject_hosts: whether an ejected backend
	// is removed from the ring (if true) or left routable but left to
	// fail its connection attempts (if false).
	AutoEjectHosts bool

	// ServerConnections bounds how many concurrent TCP connections the
	// pool opens to a single backend (default 1).
	ServerConnections int

	// FailureLimit is server_failure_limit: consecutive failures before a
	// backend is ejected (default 2).
	FailureLimit int

	// RetryTimeoutMs is server_retry_timeout in milliseconds: how long an
	// ejected backend stays ejected before it is eligible for retry
	// again (default 30000).
	RetryTimeoutMs int64

	// MbufPool supplies every server Connection's In/Out chunk chains.
	// Required.
	MbufPool *mbuf.Pool

	// NowMs returns the current time in milliseconds; defaults to
	// time.Now().UnixMilli. Tests substitute a deterministic clock.
	NowMs func() int64
}

// Pool is the live backend table: the configured Backends, the hash ring
// built over whichever of them are currently eligible, and the hooks a
// Connection dial fires so its owner (router/core) can wire event
// registration before the connection is used.
type Pool struct {
	cfg      Config
	Backends []*Backend
	ring     *hashring.Ring

	// OnNewConnection is invoked synchronously right after GetConnection
	// dials a fresh backend connection, before it is returned to the
	// caller, so the core loop can register it with the EventBase (and
	// arm its read/write-ready callback) in the same tick it was opened.
	OnNewConnection func(b *Backend, c *conn.Connection)
}

// New validates cfg, applies defaults, resolves each ServerSpec into a
// Backend, and builds the initial ring.
func New(cfg Config) (*Pool, error) {
	if cfg.MbufPool == nil {
		return nil, errors.New("serverpool: MbufPool is required")
	}
	if len(cfg.Servers) == 0 {
		return nil, errors.New("serverpool: at least one server is required")
	}
	if cfg.HashFunc == nil {
		cfg.HashFunc = hashring.FNV1a_64
	}
	if cfg.ServerConnections <= 0 {
		cfg.ServerConnections = 1
	}
	if cfg.FailureLimit <= 0 {
		cfg.FailureLimit = 2
	}
	if cfg.RetryTimeoutMs <= 0 {
		cfg.RetryTimeoutMs = 30000
	}
	if cfg.NowMs == nil {
		cfg.NowMs = func() int64 { return time.Now().UnixMilli() }
	}

	p := &Pool{cfg: cfg, ring: hashring.NewRing(cfg.Distribution, cfg.HashFunc)}
	for i, s := range cfg.Servers {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("%s:%d", s.Host, s.Port)
		}
		weight := s.Weight
		if weight <= 0 {
			weight = 1
		}
		p.Backends = append(p.Backends, &Backend{
			Index:  i,
			Name:   name,
			Addr:   net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
			Weight: weight,
		})
	}
	p.RebuildRing(cfg.NowMs())
	return p, nil
}

// Now returns the pool's current time, per its configured clock.
func (p *Pool) Now() int64 { return p.cfg.NowMs() }

// AutoEjectHosts reports the pool's auto_eject_hosts setting.
func (p *Pool) AutoEjectHosts() bool { return p.cfg.AutoEjectHosts }

// RebuildRing reconstructs the ring over every Backend not currently
// ejected (or over all Backends if AutoEjectHosts is false - an ejected
// backend still routes there and is left to fail its own connect, per
// SPEC_FULL.md's router rule for that setting).
func (p *Pool) RebuildRing(now int64) {
	members := make([]hashring.Member, 0, len(p.Backends))
	for _, b := range p.Backends {
		if p.cfg.AutoEjectHosts && b.Ejected(now) {
			continue
		}
		members = append(members, hashring.Member{Index: b.Index, Name: b.Name, Weight: b.Weight})
	}
	p.ring.Build(members)
}

// Lookup resolves key to a backend index via the ring. ok is false only
// when the ring is empty (every backend ejected under AutoEjectHosts).
func (p *Pool) Lookup(key []byte) (backendIndex int, ok bool) {
	return p.ring.Lookup(key)
}

// GetConnection returns a connection to dispatch a request to backendIndex,
// round-robining across up to ServerConnections live connections and
// lazily dialing a new one (non-blocking) whenever the cap hasn't been
// reached yet or every existing connection has since closed.
func (p *Pool) GetConnection(backendIndex int) (*conn.Connection, error) {
	if backendIndex < 0 || backendIndex >= len(p.Backends) {
		return nil, fmt.Errorf("serverpool: backend index %d out of range", backendIndex)
	}
	b := p.Backends[backendIndex]
	if len(b.Conns) < p.cfg.ServerConnections {
		c, err := p.dial(b)
		if err != nil {
			return nil, err
		}
		b.Conns = append(b.Conns, c)
		return c, nil
	}
	if c := b.nextConn(); c != nil {
		return c, nil
	}
	// Every slot has since closed; redial into the next round-robin slot.
	c, err := p.dial(b)
	if err != nil {
		return nil, err
	}
	b.Conns[b.next] = c
	return c, nil
}

func (p *Pool) dial(b *Backend) (*conn.Connection, error) {
	c, err := conn.DialServer(b.Addr, p.cfg.MbufPool)
	if err != nil {
		return nil, err
	}
	c.ServerIndex = b.Index
	c.OnClose = func(cc *conn.Connection) { p.forgetConnection(b, cc) }
	if p.OnNewConnection != nil {
		p.OnNewConnection(b, c)
	}
	return c, nil
}

func (p *Pool) forgetConnection(b *Backend, c *conn.Connection) {
	for i, cc := range b.Conns {
		if cc == c {
			b.Conns[i] = nil
			return
		}
	}
}

// RecordFailure increments backendIndex's consecutive failure count and
// ejects it once FailureLimit is reached, rebuilding the ring immediately
// if AutoEjectHosts is set.
func (p *Pool) RecordFailure(backendIndex int, now int64) {
	if backendIndex < 0 || backendIndex >= len(p.Backends) {
		return
	}
	b := p.Backends[backendIndex]
	b.FailureCount++
	if b.FailureCount >= p.cfg.FailureLimit && !b.Ejected(now) {
		b.EjectedUntil = now + p.cfg.RetryTimeoutMs
		if p.cfg.AutoEjectHosts {
			p.RebuildRing(now)
		}
	}
}

// RecordSuccess resets backendIndex's consecutive failure count.
func (p *Pool) RecordSuccess(backendIndex int) {
	if backendIndex < 0 || backendIndex >= len(p.Backends) {
		return
	}
	p.Backends[backendIndex].FailureCount = 0
}

// CheckRecovery un-ejects any backend whose retry deadline has passed,
// rebuilding the ring if that changed membership under AutoEjectHosts.
// Called periodically from the core loop's timer wheel.
func (p *Pool) CheckRecovery(now int64) {
	changed := false
	for _, b := range p.Backends {
		if b.EjectedUntil != 0 && !b.Ejected(now) {
			b.EjectedUntil = 0
			b.FailureCount = 0
			changed = true
		}
	}
	if changed && p.cfg.AutoEjectHosts {
		p.RebuildRing(now)
	}
}
