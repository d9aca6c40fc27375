// Package evloop provides the single-threaded, non-blocking I/O
// multiplexing core of the proxy: a platform-native poller (epoll on
// Linux, kqueue on Darwin) wrapped by an EventBase exposing the same small
// surface as original_source/src/event/nc_event.h - add/remove a
// connection's readability, add/remove its writability, and wait for the
// next batch of I/O plus due timers - together with a min-heap timer wheel
// for request timeouts and backend reconnect backoff.
//
// The poller implementations (poller_linux.go, poller_darwin.go) are
// adapted from the teacher repo's FastPoller: direct FD-indexed
// registration tables, a preallocated event buffer, and inline callback
// dispatch with no allocation on the hot path.
package evloop
