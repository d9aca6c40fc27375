// Package message defines the parsed request/response representation
// produced by package parser and consumed by package router: a Message
// carries its type tag, key(s), storage metadata, and the chunk chain
// holding its serialized bytes, plus the request<->response peer pointer
// and the fragment-parent/outstanding-count bookkeeping used to fan a
// multi-key request out to several backends and reassemble their replies
// in the original client's order.
package message
