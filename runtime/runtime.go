package runtime

import (
	"sort"

	"github.com/egnees/mc-proto-sub000/internal/diag"
)

// Status reports what happened to the task a call to [Runtime.ProcessNextTask]
// polled.
type Status int

const (
	// StatusParked means the task suspended on an Await and remains in the
	// runtime, to be resumed once its trigger fires and it re-schedules
	// itself.
	StatusParked Status = iota
	// StatusCompleted means the task ran to completion (its JoinHandle, if
	// any, is now satisfied).
	StatusCompleted
	// StatusPanicked means the task's body panicked; Runtime.ProcessNextTask
	// reports the recovered value via its second return.
	StatusPanicked
)

// Runtime owns the pending-task queue and the task table. The zero value
// is not usable; construct with [New].
type Runtime struct {
	nextID  uint64
	tasks   map[TaskID]*task
	pending []TaskID // FIFO ready queue
	queued  map[TaskID]bool
}

// New returns an empty Runtime.
func New() *Runtime {
	return &Runtime{
		tasks:  make(map[TaskID]*task),
		queued: make(map[TaskID]bool),
	}
}

func (rt *Runtime) allocTaskID() TaskID {
	rt.nextID++
	return TaskID(rt.nextID)
}

func (rt *Runtime) registerTask(id TaskID, t *task) {
	rt.tasks[id] = t
}

func (rt *Runtime) handoffOf(id TaskID) *handoff {
	t, ok := rt.tasks[id]
	if !ok {
		panic("runtime: handoff requested for unknown task")
	}
	return t.h
}

func (rt *Runtime) enqueueReady(id TaskID) {
	if _, alive := rt.tasks[id]; !alive {
		return
	}
	if rt.queued[id] {
		return
	}
	rt.queued[id] = true
	rt.pending = append(rt.pending, id)
}

func (rt *Runtime) popReady() (TaskID, bool) {
	for len(rt.pending) > 0 {
		id := rt.pending[0]
		rt.pending = rt.pending[1:]
		delete(rt.queued, id)
		if _, alive := rt.tasks[id]; alive {
			return id, true
		}
	}
	return 0, false
}

// NextTaskOwner peeks the next ready task's owner without polling it; the
// driving loop uses this to decide which context to install before calling
// ProcessNextTask.
func (rt *Runtime) NextTaskOwner() (ProcessHandle, bool) {
	for _, id := range rt.pending {
		if t, alive := rt.tasks[id]; alive {
			return t.owner, true
		}
	}
	return ProcessHandle{}, false
}

// ProcessNextTask pops one ready task and polls it exactly once: resumes its
// goroutine and waits for it to either park again (on a fresh Await),
// complete, or panic. Reports ok=false if there is nothing ready.
func (rt *Runtime) ProcessNextTask() (status Status, panicValue any, ok bool) {
	id, has := rt.popReady()
	if !has {
		return 0, nil, false
	}
	t := rt.tasks[id]

	t.h.resume <- struct{}{}
	ev := <-t.h.yield

	switch ev.kind {
	case taskParked:
		return StatusParked, nil, true
	case taskCompleted:
		delete(rt.tasks, id)
		return StatusCompleted, nil, true
	case taskPanicked:
		delete(rt.tasks, id)
		return StatusPanicked, ev.err, true
	case taskAborted:
		// a task can only yield taskAborted in response to a cancellation
		// that CancelTasks/abortTask already issued and is waiting on
		// directly; ProcessNextTask never pops a task concurrently with
		// that, so this path is unreachable in practice but handled for
		// completeness rather than left to panic on an exhaustive switch.
		delete(rt.tasks, id)
		return StatusCompleted, nil, true
	default:
		panic("runtime: unknown task event kind")
	}
}

// RunToFixedPoint drives process_next_task in a loop, installing a fresh
// Context (built by makeCtx) ahead of every poll, until no task is ready.
// Every applied event drains this way before the next one is selected. It
// stops and returns the first panic it observes, still having drained
// whatever was ready before it.
func (rt *Runtime) RunToFixedPoint(makeCtx func(ProcessHandle) *Context) (panicOwner ProcessHandle, panicValue any, panicked bool) {
	for {
		owner, has := rt.NextTaskOwner()
		if !has {
			return ProcessHandle{}, nil, false
		}
		ctx := makeCtx(owner)
		guard := Install(ctx)
		status, pv, _ := rt.ProcessNextTask()
		guard.Release()
		if status == StatusPanicked {
			return owner, pv, true
		}
	}
}

// CancelTasks drops every task whose owner matches pred. Cancellation is
// re-entrant — dropping a task may itself schedule or spawn others whose
// owner also matches pred (e.g. a stream sender drop triggers a
// "sender dropped" event that spawns a notifier task) — so this loops,
// re-reading the owner set, until a full pass finds nothing left to cancel.
func (rt *Runtime) CancelTasks(pred func(ProcessHandle) bool) {
	for {
		ids := make([]TaskID, 0, len(rt.tasks))
		for id, t := range rt.tasks {
			if pred(t.owner) {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return
		}
		// deterministic order: log entries produced while dropping tasks
		// must not depend on Go's randomized map iteration.
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		diag.Logger().Debug().Int("count", len(ids)).Log("runtime: cancelling tasks")
		for _, id := range ids {
			rt.dropTask(id)
		}
	}
}

func (rt *Runtime) abortTask(id TaskID) {
	if _, alive := rt.tasks[id]; !alive {
		return
	}
	rt.dropTask(id)
}

// dropTask forcibly terminates a task's goroutine and removes all trace of
// it from the runtime. Safe to call whether the task is unstarted, parked,
// or (by construction of this single-threaded driver) never mid-poll.
func (rt *Runtime) dropTask(id TaskID) {
	t, ok := rt.tasks[id]
	if !ok {
		return
	}
	t.h.cancelled.Store(true)
	close(t.h.cancel)
	<-t.h.yield
	delete(rt.tasks, id)
	delete(rt.queued, id)
	for i, p := range rt.pending {
		if p == id {
			rt.pending = append(rt.pending[:i:i], rt.pending[i+1:]...)
			break
		}
	}
}

// TaskCount returns the number of tasks still tracked by the runtime
// (parked or not yet started); used by tests asserting cancellation
// soundness.
func (rt *Runtime) TaskCount() int {
	return len(rt.tasks)
}
