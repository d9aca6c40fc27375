package router

import "errors"

// ErrRequestTimeout is the cause recorded on requests failed by
// onRequestTimeout, when a backend doesn't answer within the pool's
// configured request timeout.
var ErrRequestTimeout = errors.New("router: request timed out waiting for backend response")

// ErrConnectionReset is the cause recorded on requests failed when their
// backend connection reports EventError/EventHangup.
var ErrConnectionReset = errors.New("router: backend connection reset")
