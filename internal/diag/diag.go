// Package diag provides the module's ambient, swappable diagnostic logger.
//
// This is strictly operational tracing (task scheduling, event dispatch,
// search progress), never the channel for the domain-level, replayable
// event and search logs, which are first-class return values. Built on
// github.com/joeycumines/logiface so embedding applications can bind the
// backend they already use.
package diag

import (
	"io"
	"sync/atomic"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

var current atomic.Pointer[logiface.Logger[logiface.Event]]

func init() {
	SetLogger(Disabled())
}

// Disabled returns a logger with every level turned off, the package default.
func Disabled() *logiface.Logger[logiface.Event] {
	return logiface.L.New(logiface.L.WithLevel(logiface.L.LevelDisabled())).Logger()
}

// NewZerolog builds a diagnostic logger backed by github.com/rs/zerolog,
// writing to w at the given logiface level. Embedding applications that
// already standardise on zerolog can install the result via SetLogger instead
// of the package's disabled default.
func NewZerolog(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return izerolog.L.New(
		izerolog.L.WithZerolog(zerolog.New(w)),
		izerolog.L.WithLevel(level),
	).Logger()
}

// SetLogger installs logger as the package-level diagnostic sink. Passing nil
// restores the disabled default. Safe for concurrent use: embedding
// applications may call this from goroutines the simulator knows nothing
// about.
func SetLogger(logger *logiface.Logger[logiface.Event]) {
	if logger == nil {
		logger = Disabled()
	}
	current.Store(logger)
}

// Logger returns the currently installed diagnostic logger.
func Logger() *logiface.Logger[logiface.Event] {
	return current.Load()
}
