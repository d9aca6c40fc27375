package parser

import (
	"bytes"
	"strconv"

	"github.com/memcshard/memcshard/message"
)

// commandTable maps a request's first header token to its Type. Mirrors
// the verb set enumerated in spec.md's request grammar.
var commandTable = map[string]message.Type{
	"get":     message.ReqGet,
	"gets":    message.ReqGets,
	"set":     message.ReqSet,
	"add":     message.ReqAdd,
	"replace": message.ReqReplace,
	"append":  message.ReqAppend,
	"prepend": message.ReqPrepend,
	"cas":     message.ReqCas,
	"delete":  message.ReqDelete,
	"incr":    message.ReqIncr,
	"decr":    message.ReqDecr,
	"touch":   message.ReqTouch,
	"quit":    message.ReqQuit,
	"version": message.ReqVersion,
	"stats":   message.ReqStats,
}

func splitFields(line []byte) [][]byte {
	return bytes.Fields(line)
}

func parseUint32(b []byte) (uint32, error) {
	v, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0, ErrBadHeader
	}
	return uint32(v), nil
}

func parseUint64(b []byte) (uint64, error) {
	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0, ErrBadHeader
	}
	return v, nil
}

func parseInt(b []byte) (int, error) {
	v, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, ErrBadHeader
	}
	return v, nil
}

func parseInt64(b []byte) (int64, error) {
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, ErrBadHeader
	}
	return v, nil
}
