// Package runtime implements the cooperative, single-threaded task
// scheduler: a single ready queue of tasks, each associated with an owning
// process, polled one at a time under an installed context.
//
// # One goroutine per task, one turn at a time
//
// Each task runs on its own goroutine, but the package enforces strictly
// cooperative, single-threaded semantics by never letting more than one
// task goroutine run concurrently: a task goroutine blocks on an unbuffered
// "resume" channel until [Runtime.ProcessNextTask] explicitly grants it a
// turn, and the Runtime always synchronously waits for that turn to yield
// back (via a "parked"/"completed"/"aborted" event) before doing anything
// else. Calling [Await] inside a task body is the only suspension point; it
// both parks the task and registers the waker that re-schedules it once the
// awaited [github.com/egnees/mc-proto-sub000/trigger.Waiter] fires. This
// keeps user task bodies readable as ordinary, linear Go functions while
// preserving the deterministic, one-task-at-a-time execution order the rest
// of the simulator depends on.
package runtime
