package runtime

import (
	"sync/atomic"

	"github.com/egnees/mc-proto-sub000/trigger"
)

// TaskID identifies a spawned task within a Runtime.
type TaskID uint64

type taskEventKind int

const (
	taskParked taskEventKind = iota
	taskCompleted
	taskPanicked
	taskAborted
)

type taskEvent struct {
	kind taskEventKind
	err  any
}

// handoff is the private rendezvous between a task's goroutine and the
// Runtime that owns it. Exactly one of resume/yield is ever outstanding at a
// time: the Runtime sends on resume then blocks on yield; the goroutine
// blocks on resume (or, while parked, on its awaited trigger) and sends
// exactly one event on yield per turn.
type handoff struct {
	resume    chan struct{}
	yield     chan taskEvent
	cancel    chan struct{}
	cancelled atomic.Bool
}

func newHandoff() *handoff {
	return &handoff{
		resume: make(chan struct{}),
		yield:  make(chan taskEvent),
		cancel: make(chan struct{}),
	}
}

type task struct {
	owner ProcessHandle
	h     *handoff
}

// joinResult wraps a spawned function's return value so it can travel
// through the same generic trigger payload the rest of the event manager
// uses for outcomes.
type joinResult[T any] struct {
	value T
}

// JoinHandle is returned by [Spawn]; it can be awaited (via [Join], from
// inside another task) or aborted (via [JoinHandle.Abort]).
type JoinHandle[T any] struct {
	id     TaskID
	waiter trigger.Waiter
	rt     *Runtime
}

// ID returns the underlying task id.
func (j *JoinHandle[T]) ID() TaskID { return j.id }

// Abort cancels the task if it hasn't completed yet; a no-op otherwise.
func (j *JoinHandle[T]) Abort() {
	j.rt.abortTask(j.id)
}

// Spawn creates a task owned by owner and enqueues it; f runs on its own
// goroutine but only ever executes while holding the runtime's single turn
// token (see package doc). f may call [Await] to suspend on a trigger.
func Spawn[T any](rt *Runtime, owner ProcessHandle, f func(ctx *Context) T) *JoinHandle[T] {
	id := rt.allocTaskID()
	h := newHandoff()
	waiter, trig := trigger.New()

	rt.registerTask(id, &task{owner: owner, h: h})

	go func() {
		select {
		case <-h.resume:
		case <-h.cancel:
			h.yield <- taskEvent{kind: taskAborted}
			return
		}

		ctx := &Context{rt: rt, taskID: id, Owner: owner}
		var result T

		defer func() {
			if h.cancelled.Load() {
				h.yield <- taskEvent{kind: taskAborted}
				return
			}
			if r := recover(); r != nil {
				h.yield <- taskEvent{kind: taskPanicked, err: r}
				return
			}
			_ = trig.Invoke(joinResult[T]{value: result})
			h.yield <- taskEvent{kind: taskCompleted}
		}()

		result = f(ctx)
	}()

	rt.enqueueReady(id)

	return &JoinHandle[T]{id: id, waiter: waiter, rt: rt}
}

// Await suspends the current task until w fires, then returns its payload
// downcast to T. A type mismatch between what was sent and T is a
// programmer error, not a recoverable condition; [trigger.Get] panics in
// that case. If the task is cancelled (owner
// crashed/shut down, or the task was explicitly aborted) while parked, Await
// never returns: it unwinds the task goroutine via Goexit, running deferred
// cleanup along the way. Must only be called with the ctx belonging to the
// currently executing task.
func Await[T any](ctx *Context, w trigger.Waiter) T {
	rt := ctx.rt
	h := rt.handoffOf(ctx.taskID)
	taskID := ctx.taskID

	// Register the waker before yielding control: once this call returns
	// control to the Runtime (below), nothing about this task may touch
	// shared scheduler state except through this callback, which Invoke
	// calls synchronously on whichever goroutine is driving the current
	// turn — never concurrently with this one.
	w.OnWake(func() { rt.enqueueReady(taskID) })

	h.yield <- taskEvent{kind: taskParked}

	select {
	case <-w.Done():
	case <-h.cancel:
		h.cancelled.Store(true)
		goexit()
	}

	select {
	case <-h.resume:
	case <-h.cancel:
		h.cancelled.Store(true)
		goexit()
	}

	return trigger.Get[T](w)
}

// Join awaits a spawned task's result from inside another task. It never
// returns if the joined task (or the joining task itself) is cancelled —
// see [Await].
func Join[T any](ctx *Context, j *JoinHandle[T]) T {
	return Await[joinResult[T]](ctx, j.waiter).value
}
