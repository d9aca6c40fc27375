package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/memcshard/memcshard/serverpool"
)

// ParseServerEntry parses one server list entry in "host:port:weight" or
// "host:port:weight:name" form, SPEC_FULL.md's §3/§4.9 wire shape for a
// pool's server list (the same entry grammar original_source's server
// list lines use, modulo that config here carries it as an explicit
// fourth colon-separated field rather than a trailing space-separated
// name).
func ParseServerEntry(entry string) (serverpool.ServerSpec, error) {
	parts := strings.Split(entry, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return serverpool.ServerSpec{}, fmt.Errorf("expected host:port:weight[:name], got %q", entry)
	}
	host := parts[0]
	if host == "" {
		return serverpool.ServerSpec{}, fmt.Errorf("empty host in %q", entry)
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return serverpool.ServerSpec{}, fmt.Errorf("invalid port in %q: %w", entry, err)
	}
	weight, err := strconv.Atoi(parts[2])
	if err != nil {
		return serverpool.ServerSpec{}, fmt.Errorf("invalid weight in %q: %w", entry, err)
	}
	var name string
	if len(parts) == 4 {
		name = parts[3]
	}
	return serverpool.ServerSpec{Host: host, Port: port, Weight: weight, Name: name}, nil
}
