// Package router is the proxy's core request/response pipeline: routing
// a parsed request to a backend index via the hash ring, fragmenting a
// multi-key get/gets across however many backends its keys land on,
// reassembling fragment responses into one client-facing reply, and
// restoring strict in-order delivery to each client even though
// different fragments of different requests complete on different
// backend connections in whatever order those backends happen to answer.
package router
