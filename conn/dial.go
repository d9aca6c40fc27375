package conn

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/memcshard/memcshard/mbuf"
)

// DialServer begins a non-blocking connect to a backend's "host:port"
// address, returning immediately with a KindServer Connection in
// StateConnecting - it does not wait for the connect to complete.
// The router (through serverpool's OnNewConnection hook) registers the
// returned Connection for write readiness (the standard
// non-blocking-connect completion signal) and calls
// ConnectError once that fires to learn whether the connect actually
// succeeded, transitioning to StateOpen on success.
//
// This mirrors original_source/src/nc_server.c's server_connect, which
// likewise issues a non-blocking connect() and defers success/failure
// detection to the next writable event - the same lazy-connect contract
// SPEC_FULL.md's router section describes ("lazy non-blocking connect;
// sub-messages queue immediately against the not-yet-open connection").
func DialServer(addr string, pool *mbuf.Pool) (*Connection, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	parsed := net.ParseIP(host)
	if parsed == nil {
		ips, err := net.LookupIP(host)
		if err != nil {
			return nil, err
		}
		parsed = ips[0]
	}
	var ip [4]byte
	copy(ip[:], parsed.To4())

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)

	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, err
	}

	return &Connection{Kind: KindServer, State: StateConnecting, fd: fd, Pool: pool}, nil
}
