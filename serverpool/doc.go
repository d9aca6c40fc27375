// Package serverpool owns the live backend table: dialing, lazy
// non-blocking connect, the server_connections concurrency bound per
// backend, failure accounting, and ejection/recovery - the pieces of
// original_source/src/nc_server.c that sit behind the hash ring (package
// hashring) and the connection state machine (package conn).
package serverpool
