// Package conn implements the connection state machine shared by the
// proxy's three connection kinds - listener, client, and server - on top
// of raw non-blocking sockets, mirroring original_source/src/
// nc_connection.c's struct conn and its recv/send/close contract rather
// than Go's net.Conn (whose own hidden netpoller goroutine would fight
// package evloop's single-threaded epoll/kqueue loop for the same fd).
package conn
