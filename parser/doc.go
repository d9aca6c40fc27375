// Package parser implements the streaming memcached ASCII protocol grammar
// described in original_source/src/nc_parse.h, adapted to Go's slice-based
// zero-copy chunks instead of C's raw pointer arithmetic over mbufs.
//
// Each call to ParseRequest or ParseResponse consumes as much of a
// connection's input mbuf.Chain as forms one complete message, and reports
// one of five outcomes mirroring parse_result_t:
//
//   - Again: not enough bytes buffered yet; the caller should return to the
//     event loop and re-invoke once more data arrives.
//   - OK: a full message was parsed and returned.
//   - Repair: a token straddled a chunk boundary and was merged into a
//     single scratch chunk; callers simply invoke Parse again, since the
//     merge already happened in place. ParseRequest reports this for a
//     request header line; ParseResponse merges in place and carries on
//     within the same call, so it does not report Repair.
//   - Fragment: a multi-key get/gets whose keys route to more than one
//     backend; the returned Message carries the full, unsplit key list and
//     the caller (package router) performs the actual fan-out.
//   - Error: malformed input (oversized or illegal key, unknown command,
//     corrupt header).
package parser
