package search

import "github.com/egnees/mc-proto-sub000/system"

// Builder constructs the initial System a Trace replays from scratch —
// registering nodes, processes, and any filesystems the scenario needs
// before a single Step is applied.
type Builder func() *system.System

// Trace is an initial-state builder plus an ordered list of Steps. It is a
// value type: WithStep returns a new Trace holding its own copy of the old
// one's steps, so a search frontier can branch freely without traces
// aliasing each other's step slices.
type Trace struct {
	build Builder
	steps []Step
}

// NewTrace returns the empty Trace that replays to build's initial system.
func NewTrace(build Builder) Trace {
	return Trace{build: build}
}

// WithStep returns a copy of t with step appended.
func (t Trace) WithStep(step Step) Trace {
	steps := make([]Step, len(t.steps)+1)
	copy(steps, t.steps)
	steps[len(t.steps)] = step
	return Trace{build: t.build, steps: steps}
}

// Steps returns the recorded steps in application order. The returned slice
// must not be mutated.
func (t Trace) Steps() []Step { return t.steps }

// Len reports how many steps this trace carries.
func (t Trace) Len() int { return len(t.steps) }

// truncate returns a copy of t holding only its first n steps, used to
// shrink a trace down to the exact failing prefix once a replay panics
// partway through (state.go's newSearchState).
func (t Trace) truncate(n int) Trace {
	steps := make([]Step, n)
	copy(steps, t.steps[:n])
	return Trace{build: t.build, steps: steps}
}
