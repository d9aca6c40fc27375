// Package core is the process-wide handle that binds the event base, the
// chunk pool, and however many configured pools (each a listener plus the
// router/serverpool pair serving it) into the single-threaded loop
// original_source calls core_loop. Apart from package message's atomic
// message-id counter, nothing else in this repo keeps process-scoped
// mutable state at package scope - every other durable value a
// proxy instance needs lives on a *Context, per SPEC_FULL.md's design note
// that an explicit context handle replaces module-scope globals.
package core
