// Package logging is memcshard's structured-logging seam. Every other
// package depends only on *Logger, never on logiface or stumpy directly -
// stumpy is named in exactly one place (New), matching the teacher
// repo's own convention of funneling a pluggable logging backend through
// a single constructor rather than letting every package pick its own.
package logging

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is a type alias, not a wrapper struct, so callers get the full
// logiface.Logger builder chain (Info()/Err()/Debug()/...Log(msg)) for
// free rather than memcshard re-declaring every method.
type Logger = logiface.Logger[*stumpy.Event]

// Builder is what Logger.Info()/Err()/Debug() return; Str/Int64/Err/Bool
// accumulate fields before a terminal Log/Logf call.
type Builder = logiface.Builder[*stumpy.Event]

// Level re-exports logiface.Level so config can select a log level by
// name without importing logiface.
type Level = logiface.Level

const (
	LevelDisabled      = logiface.LevelDisabled
	LevelError         = logiface.LevelError
	LevelWarning       = logiface.LevelWarning
	LevelInformational = logiface.LevelInformational
	LevelDebug         = logiface.LevelDebug
	LevelTrace         = logiface.LevelTrace
)

// LevelByName resolves a config-file level name ("error", "info", ...) to
// a Level, defaulting to LevelInformational for an empty or unrecognized
// name.
func LevelByName(name string) Level {
	switch name {
	case "emerg", "emergency":
		return logiface.LevelEmergency
	case "alert":
		return logiface.LevelAlert
	case "crit", "critical":
		return logiface.LevelCritical
	case "error", "err":
		return LevelError
	case "warn", "warning":
		return LevelWarning
	case "notice":
		return logiface.LevelNotice
	case "debug":
		return LevelDebug
	case "trace":
		return LevelTrace
	default:
		return LevelInformational
	}
}

// New builds the proxy's concrete logger, writing newline-delimited JSON
// to w (os.Stderr if nil) at the given level.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	)
}

// Discard is a Logger that drops everything, for tests that don't care
// about log output but exercise code paths requiring a non-nil Logger.
func Discard() *Logger {
	return New(io.Discard, LevelDisabled)
}
