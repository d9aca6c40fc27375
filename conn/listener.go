package conn

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/memcshard/memcshard/mbuf"
)

// Listen opens a non-blocking TCP listening socket bound to addr
// ("host:port"), returning a KindListener Connection. Its State starts
// StateOpen (listening); a listener never visits StateHalfClosed or
// StateConnecting.
func Listen(addr string) (*Connection, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, err
	}

	var ip [4]byte
	if host != "" && host != "0.0.0.0" {
		parsed := net.ParseIP(host)
		if parsed == nil {
			unix.Close(fd)
			return nil, &net.AddrError{Err: "invalid listen host", Addr: host}
		}
		copy(ip[:], parsed.To4())
	}
	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &Connection{Kind: KindListener, State: StateOpen, fd: fd}, nil
}

// LocalPort returns the port a listener (or any bound socket) ended up on,
// useful when Listen was asked for an ephemeral port ("host:0").
func (c *Connection) LocalPort() (int, error) {
	sa, err := unix.Getsockname(c.fd)
	if err != nil {
		return 0, err
	}
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return sa.Port, nil
	default:
		return 0, &net.AddrError{Err: "unexpected sockaddr type for LocalPort"}
	}
}

// Accept pulls every connection currently queued on a listener, up to
// EAGAIN, mirroring the proxy listener's "accept in a loop until EAGAIN"
// contract - a single readiness event can carry many pending connections,
// and a level-triggered epoll/kqueue won't re-signal until the backlog is
// actually drained. pool supplies each new client Connection's In/Out
// chains.
func (c *Connection) Accept(pool *mbuf.Pool) ([]*Connection, error) {
	var out []*Connection
	for {
		fd, _, err := unix.Accept4(c.fd, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return out, nil
			}
			if err == unix.EINTR {
				continue
			}
			if err == unix.ECONNABORTED {
				// Peer reset before we could accept it; keep draining the
				// backlog rather than treating this as fatal.
				continue
			}
			return out, err
		}
		unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		out = append(out, &Connection{Kind: KindClient, State: StateOpen, fd: fd, Pool: pool})
	}
}
