package core

import (
	"errors"
	"fmt"

	"github.com/memcshard/memcshard/conn"
	"github.com/memcshard/memcshard/evloop"
	"github.com/memcshard/memcshard/logging"
	"github.com/memcshard/memcshard/mbuf"
	"github.com/memcshard/memcshard/router"
	"github.com/memcshard/memcshard/serverpool"
)

// ErrAlreadyRunning is returned by Run when called on a Context whose loop
// is already executing.
var ErrAlreadyRunning = errors.New("core: context is already running")

// Options configures a Context. Zero values fall back to the defaults
// noted per field.
type Options struct {
	// ChunkSize and MaxFreeChunks size the process-wide mbuf.Pool every
	// pool's connections share; defaults are mbuf.DefaultSize and
	// mbuf.DefaultMaxFree.
	ChunkSize    int
	MaxFreeChunks int

	// RequestTimeoutMs is the default request timeout handed to every
	// router.New'd via AddPool; 0 falls back to 750ms, matching
	// twemproxy's own default timeout.
	RequestTimeoutMs int64

	// TickMs bounds how long a single Wait call blocks with nothing due,
	// the same role as original_source's configured tick interval: it
	// caps how long a pending Shutdown can take to be noticed and also
	// how often RecoveryIntervalMs work gets a chance to run. 0 falls
	// back to 1000ms.
	TickMs int

	// RecoveryIntervalMs controls how often every pool's CheckRecovery
	// runs via a self-rescheduling timer; 0 falls back to 1000ms.
	RecoveryIntervalMs int64

	// Log receives every component's structured logging; nil falls back
	// to logging.Discard().
	Log *logging.Logger
}

// PoolContext is one configured pool within a Context: its listener, the
// backend table behind it, and the router dispatching between them.
type PoolContext struct {
	Name     string
	Servers  *serverpool.Pool
	Router   *router.Router
	Listener *conn.Connection
}

// Context is the process-wide handle binding the event base, every
// configured pool, the shared chunk pool, and the timing wheel (embedded
// in EventBase) - the GLOSSARY's definition of core.Context, and the Go
// analogue of original_source's context_create/context_destroy pair plus
// core_loop.
type Context struct {
	Pool      *mbuf.Pool
	EventBase *evloop.EventBase
	Log       *logging.Logger

	opts    Options
	pools   []*PoolContext
	sig     *selfPipe
	running bool
	stop    bool
}

// New allocates the shared chunk pool and event base and wires the
// self-pipe signal fd (see signal.go), returning a Context with no pools
// yet attached. Call AddPool once per configured listener before Run.
func New(opts Options) (*Context, error) {
	if opts.RequestTimeoutMs <= 0 {
		opts.RequestTimeoutMs = 750
	}
	if opts.TickMs <= 0 {
		opts.TickMs = 1000
	}
	if opts.RecoveryIntervalMs <= 0 {
		opts.RecoveryIntervalMs = 1000
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}

	eb, err := evloop.NewEventBase(nil)
	if err != nil {
		return nil, fmt.Errorf("core: creating event base: %w", err)
	}

	ctx := &Context{
		Pool:      mbuf.NewPool(opts.ChunkSize, opts.MaxFreeChunks),
		EventBase: eb,
		Log:       opts.Log,
		opts:      opts,
	}

	sig, err := newSelfPipe()
	if err != nil {
		eb.Close()
		return nil, fmt.Errorf("core: creating self-pipe: %w", err)
	}
	if err := eb.AddConn(sig, ctx.signalCallback(sig)); err != nil {
		eb.Close()
		sig.close()
		return nil, fmt.Errorf("core: registering self-pipe: %w", err)
	}
	ctx.sig = sig

	ctx.armRecovery()
	return ctx, nil
}

// AddPool wires a configured serverpool.Pool behind a listener on
// listenAddr, registering both with ctx's shared event base. name is
// purely descriptive (used in Snapshot and log lines); it need not be
// unique, though giving each pool a distinct name makes the snapshot more
// useful. requestTimeoutMs overrides ctx's default request timeout for
// this pool alone (a config.Pool's own "timeout" field, typically); 0
// keeps the Context-wide default from Options.
func (ctx *Context) AddPool(name, listenAddr string, servers *serverpool.Pool, requestTimeoutMs int64) (*PoolContext, error) {
	if requestTimeoutMs <= 0 {
		requestTimeoutMs = ctx.opts.RequestTimeoutMs
	}
	r := router.New(ctx.Pool, servers, ctx.EventBase, ctx.Log, requestTimeoutMs)
	l, err := r.ListenAndServe(listenAddr)
	if err != nil {
		return nil, fmt.Errorf("core: listening for pool %q: %w", name, err)
	}
	pc := &PoolContext{Name: name, Servers: servers, Router: r, Listener: l}
	ctx.pools = append(ctx.pools, pc)
	return pc, nil
}

// Pools returns every pool attached via AddPool, in attachment order.
func (ctx *Context) Pools() []*PoolContext { return ctx.pools }

// Run drives the core loop: repeated EventBase.Wait calls, each
// dispatching whatever I/O and timers came due, until Shutdown has been
// called (observed via the self-pipe, not a direct flag check, so it is
// only ever noticed from inside the loop goroutine itself). It returns
// nil on a clean shutdown and a non-nil error only
// if the poller itself fails, which original_source treats as fatal.
func (ctx *Context) Run() error {
	if ctx.running {
		return ErrAlreadyRunning
	}
	ctx.running = true
	defer func() { ctx.running = false }()

	for !ctx.stop {
		if _, err := ctx.EventBase.Wait(ctx.opts.TickMs); err != nil {
			return fmt.Errorf("core: event wait failed: %w", err)
		}
	}
	return nil
}

// Shutdown requests a clean exit of Run's loop by writing to the
// self-pipe. It is safe to call from any goroutine - in particular, a
// signal.Notify goroutine in the program embedding core, which owns the actual
// signal-to-action trampoline that SPEC_FULL.md's Non-goals keep outside
// this package. Run itself only ever learns about the request through
// the ordinary readiness path, never an interrupted syscall.
func (ctx *Context) Shutdown() error {
	return ctx.sig.notify()
}

// Close tears down every pool's listener and the event base itself. Call
// once Run has returned.
func (ctx *Context) Close() error {
	var firstErr error
	for _, pc := range ctx.pools {
		if err := pc.Listener.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	ctx.sig.close()
	if err := ctx.EventBase.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// armRecovery schedules the first of an ongoing chain of self-rescheduling
// timers that call every pool's Servers.CheckRecovery, the core loop's
// only periodic (as opposed to event-driven) piece of work.
func (ctx *Context) armRecovery() {
	var tick func()
	tick = func() {
		now := ctx.EventBase.Now()
		for _, pc := range ctx.pools {
			pc.Servers.CheckRecovery(now)
		}
		ctx.EventBase.ScheduleTimer(ctx.opts.RecoveryIntervalMs, tick)
	}
	ctx.EventBase.ScheduleTimer(ctx.opts.RecoveryIntervalMs, tick)
}
