package search

import (
	"fmt"

	"github.com/egnees/mc-proto-sub000/event"
)

// WrapError matches the style of the eventloop package's WrapError: a
// shallow %w wrap carrying a human-readable prefix. Nothing in this package
// calls it; a failed replay is reported as a SearchError instead.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}

// InvariantViolation reports an invariant callback returning a non-nil
// error while exploring Trace.
type InvariantViolation struct {
	Message string
	Trace   Trace
	Log     *event.Log
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated after %d steps: %s\n%s", e.Trace.Len(), e.Message, e.Log)
}

// LivenessViolation reports a state with no legal successor steps whose
// goal was never reached.
type LivenessViolation struct {
	Trace Trace
	Log   *event.Log
}

func (e *LivenessViolation) Error() string {
	return fmt.Sprintf("liveness violated after %d steps: no successor steps and goal not reached\n%s", e.Trace.Len(), e.Log)
}

// AllPruned reports a Check or Collect run that pruned at least one branch
// and collected no state, or a Collect run that collected nothing at all.
type AllPruned struct{}

func (e *AllPruned) Error() string {
	return "every reachable state was pruned; nothing collected"
}

// Cycled reports a state already visited earlier in the same exhaustive
// search.
type Cycled struct {
	Trace Trace
	Hash  uint64
}

func (e *Cycled) Error() string {
	return fmt.Sprintf("state %#x already visited (cycle detected after %d steps)", e.Hash, e.Trace.Len())
}

// ProcessPanic reports a process handler panic observed during replay. Its
// Trace is truncated to the exact failing prefix (the panicking step and
// nothing after it), so the error itself carries a minimal reproduction.
type ProcessPanic struct {
	Panic event.Panic
	Trace Trace
}

func (e *ProcessPanic) Error() string {
	return fmt.Sprintf("process %s panicked after %d steps: %v", e.Panic.Owner, e.Trace.Len(), e.Panic.Value)
}

// SearchError is the error type every Searcher/Checker operation returns.
// Cause is always one of this file's five violation kinds, or (with Message
// set) the error a step returned while its trace was being replayed.
type SearchError struct {
	Cause   error
	Message string
}

func (e *SearchError) Error() string {
	if e.Message == "" {
		return e.Cause.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *SearchError) Unwrap() error { return e.Cause }
