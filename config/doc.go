// Package config parses a pool descriptor from TOML into config.Pool, the
// external collaborator contract SPEC_FULL.md's §4.9 describes: this
// package never reaches into core, router, or conn directly, and nothing
// in those packages imports it back. Pool.Build is the single seam that
// turns a parsed descriptor into a *serverpool.Pool the rest of the proxy
// actually uses.
package config
