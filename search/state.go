package search

import (
	"fmt"

	"github.com/egnees/mc-proto-sub000/system"
)

// StateView is the read-only subset of SearchState exposed to invariant,
// goal, and prune callbacks — they observe state, never mutate it directly
// (any mutation must go through a Step, so it's recorded on the Trace).
type StateView interface {
	System() *system.System
	Trace() Trace
}

// SearchState pairs a live System with the Trace whose replay produced
// it.
type SearchState struct {
	sys   *system.System
	trace Trace
}

// System returns the live system this state reached.
func (s *SearchState) System() *system.System { return s.sys }

// Trace returns the sequence of steps that reached this state.
func (s *SearchState) Trace() Trace { return s.trace }

// newSearchState rebuilds a fresh system from trace.build and replays every
// recorded step in order. If a step's replay surfaces a process panic, the
// returned error's Trace is truncated to the exact failing prefix rather
// than the full, possibly much longer, trace the caller passed in: the
// minimal trace that reproduces it.
func newSearchState(trace Trace) (*SearchState, error) {
	sys := trace.build()
	for i, step := range trace.steps {
		pan, err := step.Apply(sys)
		if err != nil {
			return nil, &SearchError{Message: fmt.Sprintf("search: replay step %d (%s) failed", i, step), Cause: err}
		}
		if pan != nil {
			return nil, &SearchError{Cause: &ProcessPanic{Panic: *pan, Trace: trace.truncate(i + 1)}}
		}
	}
	return &SearchState{sys: sys, trace: trace}, nil
}
