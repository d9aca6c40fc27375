package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/memcshard/memcshard/hashring"
	"github.com/memcshard/memcshard/logging"
	"github.com/memcshard/memcshard/mbuf"
	"github.com/memcshard/memcshard/serverpool"
)

// Pool mirrors SPEC_FULL.md's §3 Server pool data model field for field:
// listen address, hash function and distribution names, timeout, a
// server list of "host:port:weight[:name]" entries, and the
// auto_eject_hosts/preconnect booleans. It is the TOML shape of one
// top-level table in a pool descriptor, matching original_source's own
// per-pool stanza in nutcracker.yml (there are named YAML, here named
// TOML, the same "one table per pool" structure).
type Pool struct {
	Listen             string   `toml:"listen"`
	HashFunc           string   `toml:"hash"`
	Distribution       string   `toml:"distribution"`
	TimeoutMs          int64    `toml:"timeout"`
	AutoEjectHosts     bool     `toml:"auto_eject_hosts"`
	Preconnect         bool     `toml:"preconnect"`
	ServerConnections  int      `toml:"server_connections"`
	ServerFailureLimit int      `toml:"server_failure_limit"`
	ServerRetryTimeout int64    `toml:"server_retry_timeout"`
	Servers            []string `toml:"servers"`
}

// Config is a parsed pool descriptor file: one named Pool per top-level
// TOML table, the same shape original_source's nutcracker.yml uses to
// describe more than one independently-configured pool in a single
// process.
type Config map[string]Pool

// Load parses the pool descriptor at path. Config parsing itself never
// touches the core event loop, per spec.md's §1 Out-of-scope list; Load
// only produces the struct core.Context.AddPool eventually consumes via
// Pool.Build.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Build resolves p's hash function and distribution names, parses its
// server list, and constructs the serverpool.Pool the router and core
// packages actually consume. chunkPool is the process-wide mbuf.Pool
// every connection's chains draw from - core.Context owns exactly one,
// so Build takes it as a parameter rather than allocating a second pool
// per configured pool, which would defeat the point of a shared chunk
// allocator. log is accepted for parity with the rest of the ambient
// stack's logging-by-default convention; it is not retained.
func (p Pool) Build(chunkPool *mbuf.Pool, log *logging.Logger) (*serverpool.Pool, error) {
	if p.Listen == "" {
		return nil, fmt.Errorf("config: listen address is required")
	}
	if len(p.Servers) == 0 {
		return nil, fmt.Errorf("config: at least one server is required")
	}

	hashFn := hashring.FNV1a_64
	if p.HashFunc != "" {
		fn, ok := hashring.Lookup(p.HashFunc)
		if !ok {
			return nil, fmt.Errorf("config: unknown hash function %q", p.HashFunc)
		}
		hashFn = fn
	}

	dist, err := distributionByName(p.Distribution)
	if err != nil {
		return nil, err
	}

	specs := make([]serverpool.ServerSpec, len(p.Servers))
	for i, entry := range p.Servers {
		spec, err := ParseServerEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("config: server entry %q: %w", entry, err)
		}
		specs[i] = spec
	}

	pool, err := serverpool.New(serverpool.Config{
		Servers:           specs,
		HashFunc:          hashFn,
		Distribution:      dist,
		AutoEjectHosts:    p.AutoEjectHosts,
		ServerConnections: p.ServerConnections,
		FailureLimit:      p.ServerFailureLimit,
		RetryTimeoutMs:    p.ServerRetryTimeout,
		MbufPool:          chunkPool,
	})
	if err != nil {
		return nil, err
	}

	if log != nil {
		log.Info().Str("listen", p.Listen).Log("pool configured")
	}
	return pool, nil
}

// distributionByName resolves a config-file distribution name to a
// hashring.Distribution, defaulting to Ketama for an empty name - the
// same default original_source itself uses when a pool's config omits
// "distribution".
func distributionByName(name string) (hashring.Distribution, error) {
	switch name {
	case "", "ketama":
		return hashring.Ketama, nil
	case "modula":
		return hashring.Modula, nil
	default:
		return 0, fmt.Errorf("config: unknown distribution %q", name)
	}
}
