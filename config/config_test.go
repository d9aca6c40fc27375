package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcshard/memcshard/config"
	"github.com/memcshard/memcshard/logging"
	"github.com/memcshard/memcshard/mbuf"
)

const sampleTOML = `
[cache_pool]
listen = "127.0.0.1:22121"
hash = "fnv1a_64"
distribution = "ketama"
timeout = 400
auto_eject_hosts = true
server_failure_limit = 3
servers = [
  "10.0.0.1:11211:1:cache01",
  "10.0.0.2:11211:2:cache02",
]
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pools.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ParsesPoolDescriptor(t *testing.T) {
	path := writeTemp(t, sampleTOML)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Contains(t, cfg, "cache_pool")

	p := cfg["cache_pool"]
	assert.Equal(t, "127.0.0.1:22121", p.Listen)
	assert.Equal(t, "fnv1a_64", p.HashFunc)
	assert.True(t, p.AutoEjectHosts)
	assert.Equal(t, 3, p.ServerFailureLimit)
	assert.Len(t, p.Servers, 2)
}

func TestPool_BuildConstructsServerPool(t *testing.T) {
	path := writeTemp(t, sampleTOML)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	chunkPool := mbuf.NewPool(0, 0)
	servers, err := cfg["cache_pool"].Build(chunkPool, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, servers)
	assert.True(t, servers.AutoEjectHosts())

	idx, ok := servers.Lookup([]byte("some-key"))
	assert.True(t, ok)
	assert.GreaterOrEqual(t, idx, 0)
}

func TestPool_BuildRejectsUnknownHashFunc(t *testing.T) {
	path := writeTemp(t, `
[p]
listen = "127.0.0.1:0"
hash = "not-a-real-hash"
servers = ["127.0.0.1:11211:1"]
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	_, err = cfg["p"].Build(mbuf.NewPool(0, 0), logging.Discard())
	assert.Error(t, err)
}

func TestParseServerEntry(t *testing.T) {
	spec, err := config.ParseServerEntry("10.0.0.1:11211:2:cache01")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", spec.Host)
	assert.Equal(t, 11211, spec.Port)
	assert.Equal(t, 2, spec.Weight)
	assert.Equal(t, "cache01", spec.Name)

	_, err = config.ParseServerEntry("10.0.0.1:notaport:1")
	assert.Error(t, err)

	_, err = config.ParseServerEntry("10.0.0.1")
	assert.Error(t, err)
}
