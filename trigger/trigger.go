// Package trigger implements a single-shot, type-erased rendezvous: make a
// (Waiter, Trigger) pair, invoke the trigger exactly once with a value, and
// the waiter's suspended task wakes with that value downcast to whatever
// type it expected.
//
// A single value travels from invoker to waiter exactly once; invoking
// after the waiter has been dropped reports failure (carrying the value
// back) rather than panicking or blocking forever; waiting for a value of
// the wrong type is an implementation bug and panics, not a recoverable
// error.
package trigger

import (
	"fmt"
	"sync"
)

type state struct {
	mu      sync.Mutex
	value   any
	done    bool
	dropped bool
	wake    chan struct{}
	onWake  func()
}

// Trigger is the write end of a single-shot signal.
type Trigger struct {
	s *state
}

// Waiter is the read end of a single-shot signal.
type Waiter struct {
	s *state
}

// New creates a single-shot rendezvous pair.
func New() (Waiter, Trigger) {
	s := &state{wake: make(chan struct{})}
	return Waiter{s: s}, Trigger{s: s}
}

// ErrWaiterDropped is returned by Invoke when the waiter was dropped before
// the trigger fired; Value carries back what would have been delivered, so
// the invoker keeps ownership of it.
type ErrWaiterDropped struct {
	Value any
}

func (e *ErrWaiterDropped) Error() string {
	return "trigger: invoked after waiter was dropped"
}

// Invoke wakes the waiter exactly once with value. Invoking a trigger twice
// is a programmer error and panics: there is exactly one occurrence to
// report per trigger, by construction of every call site in this module.
func (t Trigger) Invoke(value any) error {
	t.s.mu.Lock()

	if t.s.dropped {
		t.s.mu.Unlock()
		return &ErrWaiterDropped{Value: value}
	}
	if t.s.done {
		t.s.mu.Unlock()
		panic("trigger: invoked more than once")
	}

	t.s.value = value
	t.s.done = true
	close(t.s.wake)
	cb := t.s.onWake
	t.s.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// HasWaiter reports whether the waiter has not (yet) been dropped.
func (t Trigger) HasWaiter() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return !t.s.dropped
}

// Drop marks the waiter as gone. A later Invoke then fails with
// ErrWaiterDropped instead of delivering the value. A no-op if the trigger
// already fired.
func (w Waiter) Drop() {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	if !w.s.done {
		w.s.dropped = true
	}
}

// Done returns a channel closed exactly when Invoke has fired. Suspending on
// this channel (select-style) is how [github.com/egnees/mc-proto-sub000/runtime.Await]
// implements the "park until woken" half of a task suspension point.
func (w Waiter) Done() <-chan struct{} {
	return w.s.wake
}

// OnWake registers f to run at the moment Invoke fires (synchronously,
// inside the Invoke call itself), or immediately if the trigger has already
// fired. This is the hook the runtime package uses to re-enqueue a parked
// task the instant its waker condition is satisfied, without ever touching
// scheduler state from a goroutine other than whichever one is already
// driving the single logical turn (the invoker's). At most one callback may
// be registered per waiter.
func (w Waiter) OnWake(f func()) {
	w.s.mu.Lock()
	if w.s.done {
		w.s.mu.Unlock()
		f()
		return
	}
	w.s.onWake = f
	w.s.mu.Unlock()
}

// Get extracts the delivered value, downcast to T. Must only be called
// after Done() has been observed closed. A type mismatch between what
// Invoke received and T panics: that is an implementation bug, never a
// value a caller is expected to recover from.
func Get[T any](w Waiter) T {
	w.s.mu.Lock()
	v := w.s.value
	w.s.mu.Unlock()

	tv, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("trigger: type mismatch on downcast: wanted %T, got %T", tv, v))
	}
	return tv
}
